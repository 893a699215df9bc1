package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequiredFields are the user fields every external roster row must carry.
var RequiredFields = []string{"username"}

// OptionalFields is the fixed allow-list of user fields an external
// roster row may carry besides the required ones.
var OptionalFields = []string{"firstname", "lastname", "email", "phone1", "phone2", "institution", "department",
	"address", "city", "country", "lang", "imagealt", "lastnamephonetic", "firstnamephonetic", "middlename",
	"alternatename"}

// User is a local account, created or updated from external roster rows.
type User struct {
	ID                uint              `gorm:"column:id;primaryKey" json:"id"`
	Username          string            `gorm:"column:username;uniqueIndex;not null" json:"username"`
	Firstname         string            `gorm:"column:firstname" json:"firstname"`
	Lastname          string            `gorm:"column:lastname" json:"lastname"`
	Email             string            `gorm:"column:email" json:"email"`
	Phone1            string            `gorm:"column:phone1" json:"phone1"`
	Phone2            string            `gorm:"column:phone2" json:"phone2"`
	Institution       string            `gorm:"column:institution" json:"institution"`
	Department        string            `gorm:"column:department" json:"department"`
	Address           string            `gorm:"column:address" json:"address"`
	City              string            `gorm:"column:city" json:"city"`
	Country           string            `gorm:"column:country" json:"country"`
	Lang              string            `gorm:"column:lang" json:"lang"`
	ImageAlt          string            `gorm:"column:imagealt" json:"imagealt"`
	LastnamePhonetic  string            `gorm:"column:lastnamephonetic" json:"lastnamephonetic"`
	FirstnamePhonetic string            `gorm:"column:firstnamephonetic" json:"firstnamephonetic"`
	Middlename        string            `gorm:"column:middlename" json:"middlename"`
	Alternatename     string            `gorm:"column:alternatename" json:"alternatename"`
	Auth              string            `gorm:"column:auth;default:manual" json:"auth"`
	PasswordHash      string            `gorm:"column:password_hash" json:"-"`
	Confirmed         bool              `gorm:"column:confirmed" json:"confirmed"`
	Deleted           bool              `gorm:"column:deleted" json:"deleted"`
	ProfileFields     datatypes.JSONMap `gorm:"column:profile_fields" json:"profile_fields"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Fullname joins first and last name the way certificates print it.
func (u *User) Fullname() string {
	if u.Firstname == "" {
		return u.Lastname
	}
	if u.Lastname == "" {
		return u.Firstname
	}
	return u.Firstname + " " + u.Lastname
}

// Field returns the value of an allow-listed field by its roster column name.
func (u *User) Field(name string) string {
	switch name {
	case "username":
		return u.Username
	case "firstname":
		return u.Firstname
	case "lastname":
		return u.Lastname
	case "email":
		return u.Email
	case "phone1":
		return u.Phone1
	case "phone2":
		return u.Phone2
	case "institution":
		return u.Institution
	case "department":
		return u.Department
	case "address":
		return u.Address
	case "city":
		return u.City
	case "country":
		return u.Country
	case "lang":
		return u.Lang
	case "imagealt":
		return u.ImageAlt
	case "lastnamephonetic":
		return u.LastnamePhonetic
	case "firstnamephonetic":
		return u.FirstnamePhonetic
	case "middlename":
		return u.Middlename
	case "alternatename":
		return u.Alternatename
	}
	return ""
}

// SetField assigns an allow-listed field by its roster column name.
// Unknown names are ignored.
func (u *User) SetField(name, value string) {
	switch name {
	case "username":
		u.Username = value
	case "firstname":
		u.Firstname = value
	case "lastname":
		u.Lastname = value
	case "email":
		u.Email = value
	case "phone1":
		u.Phone1 = value
	case "phone2":
		u.Phone2 = value
	case "institution":
		u.Institution = value
	case "department":
		u.Department = value
	case "address":
		u.Address = value
	case "city":
		u.City = value
	case "country":
		u.Country = value
	case "lang":
		u.Lang = value
	case "imagealt":
		u.ImageAlt = value
	case "lastnamephonetic":
		u.LastnamePhonetic = value
	case "firstnamephonetic":
		u.FirstnamePhonetic = value
	case "middlename":
		u.Middlename = value
	case "alternatename":
		u.Alternatename = value
	}
}
