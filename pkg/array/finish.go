package array

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/logger"
)

// FinishBuilding publishes the builder buffers in a.Buffers and validates
// the result at level. From the default level up, empty string and binary
// data buffers are allocated so that no data buffer is nil.
func (a *Array) FinishBuilding(level ValidationLevel) error {
	if _, err := a.state(); err != nil {
		return err
	}
	if level >= ValidationDefault {
		if err := a.finalizeBuffers(); err != nil {
			return err
		}
	}
	a.flushBuffers()
	if level == ValidationNone {
		return nil
	}

	var v View
	if err := v.initFromArray(a); err != nil {
		return err
	}
	if err := v.bind(a); err != nil {
		return err
	}
	if err := v.Validate(level); err != nil {
		logger.Named("array").Debug("array failed validation",
			zap.Stringer("type", a.priv.storageType),
			zap.Int64("length", a.Length),
			zap.Stringer("level", level),
			zap.Error(err))
		return err
	}
	return nil
}

// FinishBuildingDefault is FinishBuilding at the default validation level.
func (a *Array) FinishBuildingDefault() error {
	return a.FinishBuilding(ValidationDefault)
}
