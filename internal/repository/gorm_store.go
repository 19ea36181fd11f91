package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spec-kit/store-management/internal/domain"
)

type productModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Name        string          `gorm:"size:255;not null"`
	Description string          `gorm:"type:text;not null;default:''"`
	Category    string          `gorm:"size:100;not null;default:''"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity    int             `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (productModel) TableName() string { return "products" }

type roleModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:50;uniqueIndex;not null"`
}

func (roleModel) TableName() string { return "roles" }

type userModel struct {
	ID           int64       `gorm:"primaryKey;autoIncrement"`
	Username     string      `gorm:"size:50;uniqueIndex;not null"`
	Email        string      `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string      `gorm:"size:255;not null"`
	Enabled      bool        `gorm:"not null"`
	Roles        []roleModel `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type userRoleModel struct {
	UserID int64 `gorm:"primaryKey"`
	RoleID int64 `gorm:"primaryKey"`
}

func (userRoleModel) TableName() string { return "user_roles" }

// GormStore is the gorm-backed Store used with SQLite.
type GormStore struct {
	gormRepositories
}

// NewGormStore migrates the schema, seeds the roles and returns the store.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	mdb := db.WithContext(ctx)
	if err := mdb.SetupJoinTable(&userModel{}, "Roles", &userRoleModel{}); err != nil {
		return nil, fmt.Errorf("setup user_roles: %w", err)
	}
	if err := mdb.AutoMigrate(&productModel{}, &roleModel{}, &userModel{}, &userRoleModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	seed := []roleModel{{Name: string(domain.RoleUser)}, {Name: string(domain.RoleManager)}, {Name: string(domain.RoleAdmin)}}
	if err := mdb.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}
	return &GormStore{gormRepositories{db: db}}, nil
}

// WithinTx runs fn inside a gorm transaction.
func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(ctx, gormRepositories{db: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return gormError("transaction", err)
	}
	return err
}

// Ping verifies database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return gormError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return gormError("ping", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormRepositories struct {
	db *gorm.DB
}

func (r gormRepositories) Products() ProductRepository { return gormProductRepository(r) }
func (r gormRepositories) Users() UserRepository       { return gormUserRepository(r) }
func (r gormRepositories) Roles() RoleRepository       { return gormRoleRepository(r) }

// gormError classifies a gorm failure into ErrNotFound, ErrConstraint or ErrStorage.
func gormError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		strings.Contains(err.Error(), "constraint failed"):
		return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}

type gormProductRepository gormRepositories

func (r gormProductRepository) Save(ctx context.Context, product *domain.Product) error {
	m := productModel{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Category:    product.Category,
		Price:       product.Price,
		Quantity:    product.Quantity,
		CreatedAt:   product.CreatedAt,
	}

	db := r.db.WithContext(ctx)
	if m.ID == 0 {
		if err := db.Create(&m).Error; err != nil {
			return gormError("insert product", err)
		}
	} else {
		m.UpdatedAt = time.Now()
		res := db.Model(&m).Select("Name", "Description", "Category", "Price", "Quantity", "UpdatedAt").Updates(&m)
		if res.Error != nil {
			return gormError("update product", res.Error)
		}
		if res.RowsAffected == 0 {
			return gormError("update product", gorm.ErrRecordNotFound)
		}
	}

	product.ID = m.ID
	product.CreatedAt = m.CreatedAt
	product.UpdatedAt = m.UpdatedAt
	return nil
}

func (r gormProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	var m productModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, gormError("find product", err)
	}
	p := m.toDomain()
	return &p, nil
}

func (r gormProductRepository) FindAll(ctx context.Context, q PageQuery) (Page[domain.Product], error) {
	q = q.normalize()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&productModel{}).Count(&total).Error; err != nil {
		return Page[domain.Product]{}, gormError("count products", err)
	}

	var rows []productModel
	err := db.Order(clause.OrderByColumn{Column: clause.Column{Name: productOrderColumn(q.SortBy)}, Desc: q.Direction == SortDesc}).
		Order("id").
		Offset(q.Offset()).
		Limit(q.Size).
		Find(&rows).Error
	if err != nil {
		return Page[domain.Product]{}, gormError("list products", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, m := range rows {
		products = append(products, m.toDomain())
	}
	return NewPage(products, q, total), nil
}

func (r gormProductRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&productModel{}, id)
	if res.Error != nil {
		return gormError("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return gormError("delete product", gorm.ErrRecordNotFound)
	}
	return nil
}

func (m productModel) toDomain() domain.Product {
	return domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Price:       m.Price,
		Quantity:    m.Quantity,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type gormUserRepository gormRepositories

func (r gormUserRepository) Save(ctx context.Context, user *domain.User) error {
	m := userModel{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Enabled:      user.Enabled,
		CreatedAt:    user.CreatedAt,
	}

	db := r.db.WithContext(ctx)
	if m.ID == 0 {
		if err := db.Omit(clause.Associations).Create(&m).Error; err != nil {
			return gormError("insert user", err)
		}
	} else {
		m.UpdatedAt = time.Now()
		res := db.Model(&m).Omit(clause.Associations).
			Select("Username", "Email", "PasswordHash", "Enabled", "UpdatedAt").
			Updates(&m)
		if res.Error != nil {
			return gormError("update user", res.Error)
		}
		if res.RowsAffected == 0 {
			return gormError("update user", gorm.ErrRecordNotFound)
		}
	}

	if len(user.Roles) > 0 {
		links := make([]userRoleModel, 0, len(user.Roles))
		for _, role := range user.Roles {
			links = append(links, userRoleModel{UserID: m.ID, RoleID: role.ID})
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return gormError("assign role", err)
		}
	}

	user.ID = m.ID
	user.CreatedAt = m.CreatedAt
	user.UpdatedAt = m.UpdatedAt
	return nil
}

func (r gormUserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r gormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r gormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r gormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r gormUserRepository) exists(ctx context.Context, cond string, arg any) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Where(cond, arg).Count(&count).Error; err != nil {
		return false, gormError("check user", err)
	}
	return count > 0, nil
}

func (r gormUserRepository) findOne(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var m userModel
	err := r.db.WithContext(ctx).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.id") }).
		Where(cond, arg).
		First(&m).Error
	if err != nil {
		return nil, gormError("find user", err)
	}

	user := domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Enabled:      m.Enabled,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, role := range m.Roles {
		user.Roles = append(user.Roles, domain.Role{ID: role.ID, Name: domain.RoleName(role.Name)})
	}
	return &user, nil
}

type gormRoleRepository gormRepositories

func (r gormRoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var m roleModel
	if err := r.db.WithContext(ctx).Where("name = ?", string(name)).First(&m).Error; err != nil {
		return nil, gormError("find role", err)
	}
	return &domain.Role{ID: m.ID, Name: domain.RoleName(m.Name)}, nil
}
