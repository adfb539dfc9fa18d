package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tulparexpress/tulpar-bot/internal/models"
)

// Repository implements the parcel-delivery store on top of a Database.
type Repository struct {
	db Database
}

// ClientManager defines the operations for registering and looking up clients.
// Client codes are issued by the sequence allocator inside CreateClient and
// are opaque identifiers everywhere else.
type ClientManager interface {
	CreateClient(ctx context.Context, chatID int64, fullName, phone string) (models.Client, error)
	GetClientByCode(ctx context.Context, code int) (models.Client, error)
	GetClientByChatID(ctx context.Context, chatID int64) (models.Client, error)
	GetClientByPhone(ctx context.Context, phone string) (models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	UpdateClientContact(ctx context.Context, code int, fullName, phone string) error
}

// ParcelManager defines the operations on parcels: registration, strictly
// forward status advancement, and the read-side lookups.
type ParcelManager interface {
	CreateParcel(
		ctx context.Context, clientCode int, tracking string, weightKg, amountUSD, amountSom decimal.Decimal,
	) (models.Parcel, error)
	AdvanceParcelStatus(ctx context.Context, tracking string, target models.ParcelStatus) (models.Parcel, error)
	GetParcelByTracking(ctx context.Context, tracking string) (models.Parcel, error)
	GetParcelsByClient(ctx context.Context, clientCode int) ([]models.Parcel, error)
	GetParcelsByStatus(ctx context.Context, status models.ParcelStatus) ([]models.Parcel, error)
}

// PaymentManager defines the operations on payments and the balance query.
type PaymentManager interface {
	CreatePayment(
		ctx context.Context, clientCode int, amount decimal.Decimal, method models.PaymentMethod,
	) (models.Payment, error)
	SettlePayment(ctx context.Context, paymentID int, target models.PaymentStatus) error
	GetPaymentByID(ctx context.Context, paymentID int) (models.Payment, error)
	GetClientBalance(ctx context.Context, clientCode int) (decimal.Decimal, error)
}

// SettingsManager defines access to operational settings such as the
// USD-to-som exchange rate.
type SettingsManager interface {
	GetUSDRate(ctx context.Context) (decimal.Decimal, error)
	SetUSDRate(ctx context.Context, rate decimal.Decimal) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}
