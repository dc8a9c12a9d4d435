package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/rollup"
	"github.com/garyjia/record-review/pkg/utils"
)

// newValidator registers the record tags used by the service inputs:
// record_type, record_status, approver_role and group_by.
func newValidator() *validator.Validate {
	v := utils.NewValidator()

	utils.MustRegister(v, "record_type", func(fl validator.FieldLevel) bool {
		return entity.RecordType(fl.Field().String()).IsValid()
	})
	utils.MustRegister(v, "record_status", func(fl validator.FieldLevel) bool {
		return entity.Status(fl.Field().String()).IsValid()
	})
	utils.MustRegister(v, "approver_role", func(fl validator.FieldLevel) bool {
		switch entity.ApproverRole(fl.Field().String()) {
		case entity.RoleVerifier, entity.RoleApprover, entity.RoleReviewer:
			return true
		}
		return false
	})
	utils.MustRegister(v, "group_by", func(fl validator.FieldLevel) bool {
		_, err := rollup.ParseGroupBy(fl.Field().String())
		return err == nil
	})

	return v
}
