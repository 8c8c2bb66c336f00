// Package mocks provides testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"modhook.dev/pkg/modhook/internal/domain"
	m "modhook.dev/pkg/modhook/internal/model"
)

// MockWorkflow is a mock of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow whose expectations are asserted
// when the test ends.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mw := &MockWorkflow{}
	mw.Test(t)

	t.Cleanup(func() { mw.AssertExpectations(t) })

	return mw
}

// Install mocks domain.Workflow.Install.
func (mw *MockWorkflow) Install(ctx context.Context, args domain.TargetArgs) (domain.InstallResult, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(domain.InstallResult), ret.Error(1)
}

// Update mocks domain.Workflow.Update.
func (mw *MockWorkflow) Update(ctx context.Context, args domain.UpdateArgs) (domain.UpdateResult, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(domain.UpdateResult), ret.Error(1)
}

// Restore mocks domain.Workflow.Restore.
func (mw *MockWorkflow) Restore(ctx context.Context, args domain.TargetArgs) (domain.RestoreResult, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(domain.RestoreResult), ret.Error(1)
}

// Detect mocks domain.Workflow.Detect.
func (mw *MockWorkflow) Detect(ctx context.Context, args domain.TargetArgs) (m.Detection, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(m.Detection), ret.Error(1)
}

// Inspect mocks domain.Workflow.Inspect.
func (mw *MockWorkflow) Inspect(ctx context.Context, args domain.InspectArgs) ([]domain.TypeSummary, error) {
	ret := mw.Called(ctx, args)

	rows, _ := ret.Get(0).([]domain.TypeSummary)

	return rows, ret.Error(1)
}

// Diff mocks domain.Workflow.Diff.
func (mw *MockWorkflow) Diff(ctx context.Context, args domain.TargetArgs) (string, error) {
	ret := mw.Called(ctx, args)
	return ret.String(0), ret.Error(1)
}

// LoadPlugins mocks domain.Workflow.LoadPlugins.
func (mw *MockWorkflow) LoadPlugins(ctx context.Context, args domain.LoadArgs) (m.LoadReport, error) {
	ret := mw.Called(ctx, args)
	return ret.Get(0).(m.LoadReport), ret.Error(1)
}

var _ domain.Workflow = (*MockWorkflow)(nil)
