package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextSequence increments and returns the counter for prefix and year. The
// upsert holds the sequence row lock until the surrounding transaction ends,
// so numbers are handed out gap-free in commit order.
func (r *repository) NextSequence(ctx context.Context, prefix string, year int) (int, error) {
	now := time.Now().UTC()
	seq := models.OrderSequence{Prefix: prefix, Year: year, LastValue: 1, UpdatedAt: now}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prefix"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_value": gorm.Expr("order_sequences.last_value + 1"),
				"updated_at": now,
			}),
		}).
		Create(&seq).Error
	if err != nil {
		return 0, err
	}

	var current models.OrderSequence
	err = r.db.WithContext(ctx).
		Where("prefix = ? AND year = ?", prefix, year).
		First(&current).Error
	if err != nil {
		return 0, err
	}
	return current.LastValue, nil
}

// CreateOrder inserts the header and its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(&order.Items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID, lock bool) (*models.Order, error) {
	return r.findOne(ctx, lock, "id = ?", id)
}

func (r *repository) FindByNumber(ctx context.Context, number string, lock bool) (*models.Order, error) {
	return r.findOne(ctx, lock, "order_number = ?", number)
}

func (r *repository) findOne(ctx context.Context, lock bool, query string, arg any) (*models.Order, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := q.Where(query, arg).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LoadDetail fills the order's items and history, oldest first.
func (r *repository) LoadDetail(ctx context.Context, order *models.Order) error {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return err
	}
	var history []models.OrderStatusHistory
	err = r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Find(&history).Error
	if err != nil {
		return err
	}
	order.Items = items
	order.History = history
	return nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// List returns one page of orders matching filter.
func (r *repository) List(ctx context.Context, filter ListFilter, page pagination.Query) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To.UTC())
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := term + "%"
		q = q.Where("(order_number LIKE ? OR customer_phone LIKE ?)", strings.ToUpper(like), like)
	}

	var orders []models.Order
	err := page.Apply(q).Find(&orders).Error
	return orders, err
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

func (r *repository) LatestPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdatePayment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
