package dao

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"merchant-order-api/internal/dal"
	mainmodel "merchant-order-api/internal/model/main"
)

type MainDao struct {
	DB *gorm.DB
}

func NewMainDao() *MainDao {
	return &MainDao{DB: dal.MainDB}
}

func NewMainDaoWithDB(db *gorm.DB) *MainDao {
	return &MainDao{DB: db}
}

// GetMerchant 查询商户，不存在返回 nil, nil
func (r *MainDao) GetMerchant(ctx context.Context, id uint64) (*mainmodel.Merchant, error) {
	if r == nil || r.DB == nil {
		return nil, errors.New("main db not initialized")
	}
	var m mainmodel.Merchant
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query merchant failed: %w", err)
	}
	return &m, nil
}
