package model

// Company owns products; partner users are bound to exactly one company.
type Company struct {
	BaseModel
	Name string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name" validate:"notblank"`
}
