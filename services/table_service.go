package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/restaurant-booking/models"
	"gorm.io/gorm"
)

const (
	MinTableSeats = 1
	MaxTableSeats = 20
)

type TableInput struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Floor  string `json:"floor"`
	Seats  int    `json:"seats"`
	Status string `json:"status"`
}

type TableFilter struct {
	Floor  string
	Status string
	Search string
}

type TableService struct {
	DB *gorm.DB
}

func NewTableService(db *gorm.DB) *TableService {
	return &TableService{DB: db}
}

func (in TableInput) toModel() (models.Table, error) {
	t := models.Table{
		Number: in.Number,
		Name:   strings.TrimSpace(in.Name),
		Floor:  strings.TrimSpace(in.Floor),
		Seats:  in.Seats,
	}
	if t.Number <= 0 {
		return t, fmt.Errorf("%w: table number must be positive", ErrValidation)
	}
	if t.Seats < MinTableSeats || t.Seats > MaxTableSeats {
		return t, fmt.Errorf("%w: seats must be between %d and %d", ErrValidation, MinTableSeats, MaxTableSeats)
	}
	if t.Floor == "" {
		t.Floor = models.Floors[0]
	}
	if !models.ValidFloor(t.Floor) {
		return t, fmt.Errorf("%w: unknown floor %q", ErrValidation, t.Floor)
	}
	t.Status = models.TableAvailable
	if strings.TrimSpace(in.Status) != "" {
		status, ok := models.ParseTableStatus(in.Status)
		if !ok {
			return t, ErrInvalidStatus
		}
		t.Status = status
	}
	if t.Name == "" {
		t.Name = fmt.Sprintf("Table %d", t.Number)
	}
	return t, nil
}

func numberTaken(tx *gorm.DB, number int, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.Table{}).Where("number = ? AND id <> ?", number, exceptID).Count(&n).Error
	return n > 0, err
}

func (s *TableService) Create(ctx context.Context, in TableInput) (*models.Table, error) {
	table, err := in.toModel()
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := numberTaken(tx, table.Number, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateTable
		}
		if err := tx.Create(&table).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateTable
			}
			return err
		}
		return RecordChange(tx, models.EntityTables, table.ID, models.ActionInsert, "")
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// List orders tables by number. Search matches the name ignoring case.
func (s *TableService) List(ctx context.Context, f TableFilter) ([]models.Table, error) {
	q := s.DB.WithContext(ctx).Model(&models.Table{})
	if floor := strings.TrimSpace(f.Floor); floor != "" && !strings.EqualFold(floor, "all") {
		q = q.Where("floor = ?", floor)
	}
	if status := strings.TrimSpace(f.Status); status != "" && !strings.EqualFold(status, "all") {
		parsed, ok := models.ParseTableStatus(status)
		if !ok {
			return nil, ErrInvalidStatus
		}
		q = q.Where("status = ?", parsed)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(search))
	}
	var tables []models.Table
	err := q.Order("number ASC").Find(&tables).Error
	return tables, err
}

func (s *TableService) Get(ctx context.Context, id uint) (*models.Table, error) {
	var t models.Table
	if err := s.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *TableService) Update(ctx context.Context, id uint, in TableInput) (*models.Table, error) {
	next, err := in.toModel()
	if err != nil {
		return nil, err
	}
	var table models.Table
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTableNotFound
			}
			return err
		}
		taken, err := numberTaken(tx, next.Number, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateTable
		}
		table.Number = next.Number
		table.Name = next.Name
		table.Floor = next.Floor
		table.Seats = next.Seats
		// An edit without a status keeps the current one.
		if strings.TrimSpace(in.Status) != "" {
			table.Status = next.Status
		}
		if err := tx.Save(&table).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityTables, table.ID, models.ActionUpdate, "")
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *TableService) SetStatus(ctx context.Context, id uint, raw models.TableStatus) (*models.Table, error) {
	status, ok := models.ParseTableStatus(string(raw))
	if !ok {
		return nil, ErrInvalidStatus
	}
	var table models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&table, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTableNotFound
			}
			return err
		}
		if table.Status == status {
			return nil
		}
		table.Status = status
		if err := tx.Model(&table).Update("status", status).Error; err != nil {
			return err
		}
		return RecordChange(tx, models.EntityTables, table.ID, models.ActionUpdate, "")
	})
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *TableService) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Table{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTableNotFound
		}
		return RecordChange(tx, models.EntityTables, id, models.ActionDelete, "")
	})
}
