// internal/models/person.go
package models

import (
	"time"
)

type Country struct {
	ID   uint   `json:"id" gorm:"primarykey"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`
}

type Person struct {
	BaseModel
	NationalNo  string     `json:"national_no" gorm:"uniqueIndex;size:20;not null"`
	FirstName   string     `json:"first_name" gorm:"size:50;not null"`
	SecondName  string     `json:"second_name" gorm:"size:50"`
	ThirdName   string     `json:"third_name" gorm:"size:50"`
	LastName    string     `json:"last_name" gorm:"size:50;not null"`
	DateOfBirth time.Time  `json:"date_of_birth" gorm:"not null"`
	Gender      Gender     `json:"gender" gorm:"type:varchar(10);not null"`
	Address     string     `json:"address" gorm:"type:text"`
	Phone       string     `json:"phone" gorm:"size:20"`
	Email       string     `json:"email" gorm:"size:255"`
	NationalityCountryID uint   `json:"nationality_country_id" gorm:"not null;index"`
	ImageURL    string     `json:"image_url,omitempty" gorm:"size:512"`

	// Relationships
	NationalityCountry Country `json:"nationality_country,omitempty" gorm:"foreignKey:NationalityCountryID"`
}

// AgeAt returns the person's age in whole years at the given date.
func (p *Person) AgeAt(at time.Time) int {
	age := at.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(at) {
		age--
	}
	return age
}

// Driver links a person to the ability to hold licenses. Created lazily
// the first time a person is issued their first license.
type Driver struct {
	BaseModel
	PersonID        uint `json:"person_id" gorm:"uniqueIndex;not null"`
	CreatedByUserID uint `json:"created_by_user_id" gorm:"not null"`

	// Relationships
	Person Person `json:"person,omitempty" gorm:"foreignKey:PersonID"`
}
