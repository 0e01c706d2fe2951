package service

import (
	"testing"

	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	svc := &UserService{}

	_, err := svc.SetRole(1, model.UserRole("superuser"))
	assert.ErrorIs(t, err, util.ErrInvalidUserRole)
	assert.NotErrorIs(t, err, util.ErrInvalidRole)
}
