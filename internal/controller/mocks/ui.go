// Package mocks provides testify mocks of the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"modhook.dev/pkg/modhook/internal/controller"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

// MockUI is a mock of controller.UI.
type MockUI struct {
	mock.Mock
}

// NewMockUI creates a MockUI whose expectations are asserted when the test
// ends.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mu := &MockUI{}
	mu.Test(t)

	t.Cleanup(func() { mu.AssertExpectations(t) })

	return mu
}

func (mu *MockUI) DisplayInstall(ctx context.Context, res domain.InstallResult) error {
	return mu.Called(ctx, res).Error(0)
}

func (mu *MockUI) DisplayUpdate(ctx context.Context, res domain.UpdateResult) error {
	return mu.Called(ctx, res).Error(0)
}

func (mu *MockUI) DisplayRestore(ctx context.Context, res domain.RestoreResult) error {
	return mu.Called(ctx, res).Error(0)
}

func (mu *MockUI) DisplayDetection(ctx context.Context, det m.Detection) error {
	return mu.Called(ctx, det).Error(0)
}

func (mu *MockUI) DisplayHostVersion(ctx context.Context, det m.Detection) error {
	return mu.Called(ctx, det).Error(0)
}

func (mu *MockUI) DisplayInspection(ctx context.Context, rows []domain.TypeSummary) error {
	return mu.Called(ctx, rows).Error(0)
}

func (mu *MockUI) DisplayDiff(ctx context.Context, diff string) error {
	return mu.Called(ctx, diff).Error(0)
}

func (mu *MockUI) DisplayLoadReport(ctx context.Context, report m.LoadReport) error {
	return mu.Called(ctx, report).Error(0)
}

func (mu *MockUI) DisplayError(ctx context.Context, err error) {
	mu.Called(ctx, err)
}

func (mu *MockUI) Confirm(ctx context.Context, question string) (bool, error) {
	ret := mu.Called(ctx, question)
	return ret.Bool(0), ret.Error(1)
}

func (mu *MockUI) Pause(ctx context.Context) error {
	return mu.Called(ctx).Error(0)
}

var _ controller.UI = (*MockUI)(nil)
