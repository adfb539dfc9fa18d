package repository

// parcelColumns is the scan order shared by every parcel query.
const parcelColumns = `id, client_code, tracking, status, weight_kg, amount_usd, amount_som, ` +
	`date_china, date_bishkek, date_delivered, created_at`

// AllocateCodeSQL advances the client-code counter and returns the new value.
// The row update is atomic in PostgreSQL, so concurrent callers are serialized
// by the database and can never observe the same number.
const AllocateCodeSQL = `UPDATE code_counter SET last_number = last_number + 1 RETURNING last_number`

// SelectParcelForUpdateSQL locks the parcel row for the duration of a status
// transition, so concurrent advances on one tracking code run one at a time.
const SelectParcelForUpdateSQL = `SELECT status FROM parcels WHERE tracking = $1 FOR UPDATE`

// AdvanceParcelSQL moves a parcel to its next stage. Used for stages that do
// not carry a date stamp of their own.
const AdvanceParcelSQL = `UPDATE parcels SET status = $2 WHERE tracking = $1 RETURNING ` + parcelColumns

// AdvanceParcelStampSQL is the fmt template for stages that stamp a date
// column on entry. COALESCE keeps an already-set stamp untouched.
const AdvanceParcelStampSQL = `UPDATE parcels SET status = $2, %[1]s = COALESCE(%[1]s, NOW()) ` +
	`WHERE tracking = $1 RETURNING ` + parcelColumns

// GetClientBalanceSQL computes the client balance: the sum of settled (PAID)
// payments minus the sum of invoiced parcel amounts, both in som.
const GetClientBalanceSQL = `
SELECT
    COALESCE((SELECT SUM(amount) FROM payments WHERE client_code = $1 AND status = 'PAID'), 0)
  - COALESCE((SELECT SUM(amount_som) FROM parcels WHERE client_code = $1), 0) AS balance;
`
