package repository

import (
	"encoding/json"

	"github.com/studyon/course-market/internal/model"
)

type UserEntity struct {
	ID           int64   `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Email        string  `db:"email"         gorm:"column:email;not null;unique"`
	PasswordHash string  `db:"password_hash" gorm:"column:password_hash;not null"`
	Roles        string  `db:"roles"         gorm:"column:roles;not null;default:'[\"ROLE_USER\"]'"`
	Balance      float64 `db:"balance"       gorm:"column:balance;not null;default:0"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	roles, _ := json.Marshal(m.Roles)
	return &UserEntity{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Roles:        string(roles),
		Balance:      m.Balance,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	var roles []string
	if err := json.Unmarshal([]byte(e.Roles), &roles); err != nil || len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	return &model.User{
		ID:           e.ID,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		Roles:        roles,
		Balance:      e.Balance,
	}
}

func toUserModels(entities []*UserEntity) []*model.User {
	if entities == nil {
		return nil
	}
	models := make([]*model.User, len(entities))
	for i, e := range entities {
		models[i] = toUserModel(e)
	}
	return models
}
