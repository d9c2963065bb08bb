package spi

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/scaflow/internal/domain/types"
)

// MockConnector implementa Connector con funciones intercambiables.
// Se usa en tests y en el smoke flow de cmd/scaflowd. Cada campo nil hace que
// el método correspondiente retorne un error técnico, así los tests detectan
// llamadas que no esperaban.
type MockConnector struct {
	mu    sync.Mutex
	calls map[string]int

	AuthenticatePsuFn          func(ctx context.Context, data ContextData, credential string) (*PsuAuthenticationResult, error)
	ListAvailableMethodsFn     func(ctx context.Context, data ContextData) (*AvailableMethodsResult, error)
	RequestAuthorisationCodeFn func(ctx context.Context, data ContextData, methodID string) (*ChallengeResult, error)
	StartDecoupledFn           func(ctx context.Context, data ContextData, authorisationID string, methodID *string) (*DecoupledResult, error)
	VerifyScaAndExecuteFn      func(ctx context.Context, data ContextData, authenticationData string) (*ExecutionResult, error)
	ValidateConfirmationCodeFn func(ctx context.Context, data ContextData, code string) (*ConfirmationResult, error)
	ExecuteWithoutScaFn        func(ctx context.Context, data ContextData) (*ExecutionResult, error)
}

var errMockNotConfigured = errors.New("spi: mock method not configured")

// NewMockConnector crea un mock vacío.
func NewMockConnector() *MockConnector {
	return &MockConnector{calls: make(map[string]int)}
}

// Calls retorna cuántas veces se invocó un método.
func (m *MockConnector) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockConnector) record(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *MockConnector) AuthenticatePsu(ctx context.Context, data ContextData, credential string) (*PsuAuthenticationResult, error) {
	m.record("AuthenticatePsu")
	if m.AuthenticatePsuFn == nil {
		return nil, errMockNotConfigured
	}
	return m.AuthenticatePsuFn(ctx, data, credential)
}

func (m *MockConnector) ListAvailableMethods(ctx context.Context, data ContextData) (*AvailableMethodsResult, error) {
	m.record("ListAvailableMethods")
	if m.ListAvailableMethodsFn == nil {
		return nil, errMockNotConfigured
	}
	return m.ListAvailableMethodsFn(ctx, data)
}

func (m *MockConnector) RequestAuthorisationCode(ctx context.Context, data ContextData, methodID string) (*ChallengeResult, error) {
	m.record("RequestAuthorisationCode")
	if m.RequestAuthorisationCodeFn == nil {
		return nil, errMockNotConfigured
	}
	return m.RequestAuthorisationCodeFn(ctx, data, methodID)
}

func (m *MockConnector) StartDecoupled(ctx context.Context, data ContextData, authorisationID string, methodID *string) (*DecoupledResult, error) {
	m.record("StartDecoupled")
	if m.StartDecoupledFn == nil {
		return nil, errMockNotConfigured
	}
	return m.StartDecoupledFn(ctx, data, authorisationID, methodID)
}

func (m *MockConnector) VerifyScaAndExecute(ctx context.Context, data ContextData, authenticationData string) (*ExecutionResult, error) {
	m.record("VerifyScaAndExecute")
	if m.VerifyScaAndExecuteFn == nil {
		return nil, errMockNotConfigured
	}
	return m.VerifyScaAndExecuteFn(ctx, data, authenticationData)
}

func (m *MockConnector) ValidateConfirmationCode(ctx context.Context, data ContextData, code string) (*ConfirmationResult, error) {
	m.record("ValidateConfirmationCode")
	if m.ValidateConfirmationCodeFn == nil {
		return nil, errMockNotConfigured
	}
	return m.ValidateConfirmationCodeFn(ctx, data, code)
}

func (m *MockConnector) ExecuteWithoutSca(ctx context.Context, data ContextData) (*ExecutionResult, error) {
	m.record("ExecuteWithoutSca")
	if m.ExecuteWithoutScaFn == nil {
		return nil, errMockNotConfigured
	}
	return m.ExecuteWithoutScaFn(ctx, data)
}

// DemoConnector retorna un mock pre-cableado con un PSU "psu1" cuyo único
// método es SMS OTP con código "123456". Lo usa cmd/scaflowd para el smoke
// flow sin backend real.
func DemoConnector() *MockConnector {
	m := NewMockConnector()
	m.AuthenticatePsuFn = func(ctx context.Context, data ContextData, credential string) (*PsuAuthenticationResult, error) {
		if credential == "" {
			return &PsuAuthenticationResult{Status: AuthenticationFailure}, nil
		}
		return &PsuAuthenticationResult{Status: AuthenticationSuccess}, nil
	}
	m.ListAvailableMethodsFn = func(ctx context.Context, data ContextData) (*AvailableMethodsResult, error) {
		return &AvailableMethodsResult{Methods: []types.AuthenticationObject{{
			AuthenticationMethodID: "sms",
			AuthenticationType:     "SMS_OTP",
			Name:                   "SMS OTP",
		}}}, nil
	}
	m.RequestAuthorisationCodeFn = func(ctx context.Context, data ContextData, methodID string) (*ChallengeResult, error) {
		return &ChallengeResult{
			Challenge:             types.ChallengeData{OtpMaxLength: 6, OtpFormat: "integer"},
			ScaAuthenticationData: "123456",
		}, nil
	}
	m.VerifyScaAndExecuteFn = func(ctx context.Context, data ContextData, authenticationData string) (*ExecutionResult, error) {
		if authenticationData != "123456" {
			return &ExecutionResult{Success: false, BusinessStatus: types.BusinessStatusRejected}, nil
		}
		return &ExecutionResult{Success: true, BusinessStatus: demoBusinessStatus(data.Type)}, nil
	}
	m.ExecuteWithoutScaFn = func(ctx context.Context, data ContextData) (*ExecutionResult, error) {
		return &ExecutionResult{Success: true, BusinessStatus: demoBusinessStatus(data.Type)}, nil
	}
	return m
}

// demoBusinessStatus es el estado de negocio que el demo reporta al ejecutar
// el recurso padre según su tipo.
func demoBusinessStatus(t types.AuthorisationType) types.BusinessStatus {
	switch t {
	case types.AuthorisationTypePaymentCancellation:
		return types.BusinessStatusCanceled
	case types.AuthorisationTypeConsentCreation:
		return types.BusinessStatusConsentValid
	}
	return types.BusinessStatusAcceptedSettlement
}
