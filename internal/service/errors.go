package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/freight-contracts/internal/repository"
	"github.com/nurpe/freight-contracts/internal/workflow"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
)

// notFound turns a repository miss into ErrNotFound naming the entity.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return err
}

// transitionFailed maps state machine and compare-and-set failures to ErrInvalidInput.
func transitionFailed(err error) error {
	var trErr *workflow.TransitionError
	switch {
	case errors.As(err, &trErr):
		return fmt.Errorf("%w: %s", ErrInvalidInput, trErr.Error())
	case errors.Is(err, repository.ErrConditionFailed):
		return fmt.Errorf("%w: agreement status changed, reload and retry", ErrInvalidInput)
	default:
		return err
	}
}
