package models

type Member struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Nickname     string `gorm:"not null"                 json:"nickname"`
	Role         string `gorm:"not null"                 json:"role"`
	RefreshToken string `json:"-"`
}
