// internal/services/person_service.go
package services

import (
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"gorm.io/gorm"

	"github.com/openroads/licensing-backend/internal/models"
	"github.com/openroads/licensing-backend/internal/utils"
)

// PersonService manages the person reference records consumed by the
// licensing workflows. Reference data is read-mostly; the lifecycle
// engines never mutate it.
type PersonService struct {
	db             *gorm.DB
	storageService *StorageService
}

type CreatePersonRequest struct {
	NationalNo           string        `json:"national_no" validate:"required,national_no"`
	FirstName            string        `json:"first_name" validate:"required,max=50"`
	SecondName           string        `json:"second_name,omitempty" validate:"max=50"`
	ThirdName            string        `json:"third_name,omitempty" validate:"max=50"`
	LastName             string        `json:"last_name" validate:"required,max=50"`
	DateOfBirth          time.Time     `json:"date_of_birth" validate:"required"`
	Gender               models.Gender `json:"gender" validate:"required,oneof=male female"`
	Address              string        `json:"address,omitempty"`
	Phone                string        `json:"phone,omitempty" validate:"max=20"`
	Email                string        `json:"email,omitempty" validate:"omitempty,email"`
	NationalityCountryID uint          `json:"nationality_country_id" validate:"required"`
}

type UpdatePersonRequest struct {
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty" validate:"max=20"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

type PersonSearchParams struct {
	utils.PaginationParams
	NationalNo *string `json:"national_no,omitempty"`
}

func NewPersonService(db *gorm.DB, storageService *StorageService) *PersonService {
	return &PersonService{
		db:             db,
		storageService: storageService,
	}
}

func (s *PersonService) CreatePerson(req *CreatePersonRequest) (*models.Person, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// National number must be unique
	var existing models.Person
	if err := s.db.Where("national_no = ?", req.NationalNo).First(&existing).Error; err == nil {
		return nil, errors.New("a person with this national number already exists")
	}

	var country models.Country
	if err := s.db.First(&country, req.NationalityCountryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("nationality country not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	person := &models.Person{
		NationalNo:           req.NationalNo,
		FirstName:            req.FirstName,
		SecondName:           req.SecondName,
		ThirdName:            req.ThirdName,
		LastName:             req.LastName,
		DateOfBirth:          req.DateOfBirth,
		Gender:               req.Gender,
		Address:              req.Address,
		Phone:                req.Phone,
		Email:                req.Email,
		NationalityCountryID: req.NationalityCountryID,
	}

	if err := s.db.Create(person).Error; err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}

	return person, nil
}

func (s *PersonService) UpdatePerson(personID uint, req *UpdatePersonRequest) (*models.Person, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var person models.Person
	if err := s.db.First(&person, personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}

	if len(updates) > 0 {
		if err := s.db.Model(&person).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update person: %w", err)
		}
	}

	return &person, nil
}

func (s *PersonService) GetPerson(personID uint) (*models.Person, error) {
	var person models.Person
	if err := s.db.Preload("NationalityCountry").First(&person, personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &person, nil
}

func (s *PersonService) GetPersonByNationalNo(nationalNo string) (*models.Person, error) {
	var person models.Person
	if err := s.db.Preload("NationalityCountry").
		Where("national_no = ?", nationalNo).
		First(&person).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &person, nil
}

func (s *PersonService) SearchPersons(params PersonSearchParams) ([]models.Person, int64, error) {
	query := s.db.Model(&models.Person{}).Preload("NationalityCountry")

	if params.NationalNo != nil {
		query = query.Where("national_no = ?", *params.NationalNo)
	}

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR national_no LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count persons: %w", err)
	}

	allowedSortFields := []string{"created_at", "first_name", "last_name", "national_no"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var persons []models.Person
	if err := query.Find(&persons).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch persons: %w", err)
	}

	return persons, total, nil
}

// UploadPhoto stores the person's photograph and records its URL.
func (s *PersonService) UploadPhoto(personID uint, file multipart.File, header *multipart.FileHeader) (*models.Person, error) {
	var person models.Person
	if err := s.db.First(&person, personID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	result, err := s.storageService.UploadFile(file, header, UploadOptions{
		Folder:       "person-photos",
		MaxSize:      5 * 1024 * 1024, // 5MB
		AllowedTypes: []string{".jpg", ".jpeg", ".png"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	if err := s.db.Model(&person).UpdateColumn("image_url", result.URL).Error; err != nil {
		return nil, fmt.Errorf("failed to save photo URL: %w", err)
	}
	person.ImageURL = result.URL

	return &person, nil
}

func (s *PersonService) ListCountries() ([]models.Country, error) {
	var countries []models.Country
	if err := s.db.Order("name").Find(&countries).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch countries: %w", err)
	}
	return countries, nil
}
