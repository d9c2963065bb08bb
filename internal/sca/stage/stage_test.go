package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/spi"
	"github.com/dropDatabas3/scaflow/internal/store/memory"
)

func testAuth(status types.ScaStatus) *repository.Authorisation {
	return &repository.Authorisation{
		ID:          "auth-1",
		ParentID:    "pmt-1",
		Type:        types.AuthorisationTypePaymentCreation,
		ScaStatus:   status,
		ScaApproach: types.ScaApproachEmbedded,
	}
}

func testDeps(connector *spi.MockConnector) (Deps, *memory.StatusRecorder) {
	sink := memory.NewStatusRecorder()
	return Deps{Connector: connector, Sink: sink}, sink
}

// ─── Identificación ───

func TestReceived_IdentificationWithoutPsuData(t *testing.T) {
	connector := spi.NewMockConnector()
	deps, _ := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID:         "auth-1",
		UpdatePsuIdentification: true,
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryFormat || resp.ErrorHolder.Code != sca.CodeFormatErrorNoPsu {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
	if connector.Calls("AuthenticatePsu") != 0 {
		t.Fatal("identification must not touch the connector")
	}
}

func TestReceived_IdentificationMismatch(t *testing.T) {
	connector := spi.NewMockConnector()
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusReceived)
	auth.PsuData = types.PsuIdData{PsuID: "psu1"}

	resp := Received(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:         "auth-1",
		UpdatePsuIdentification: true,
		PsuData:                 types.PsuIdData{PsuID: "intruder"},
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryCredentialsInvalid {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
}

func TestReceived_IdentificationSuccessMergesPsu(t *testing.T) {
	connector := spi.NewMockConnector()
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusReceived)
	auth.PsuData = types.PsuIdData{PsuID: "psu1"}

	resp := Received(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:         "auth-1",
		UpdatePsuIdentification: true,
		PsuData:                 types.PsuIdData{PsuID: "psu1", PsuCorporateID: "corp1"},
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusPsuIdentified {
		t.Fatalf("status = %s, want PSUIDENTIFIED", resp.ScaStatus)
	}
	if resp.PsuData.PsuCorporateID != "corp1" {
		t.Fatalf("psu data not merged: %+v", resp.PsuData)
	}
}

// ─── Autenticación ───

func TestAuthorisation_CredentialsRejected(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.AuthenticatePsuFn = func(ctx context.Context, data spi.ContextData, credential string) (*spi.PsuAuthenticationResult, error) {
		return &spi.PsuAuthenticationResult{Status: spi.AuthenticationFailure}, nil
	}
	deps, _ := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "wrong",
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if !resp.CredentialFailed {
		t.Fatal("CredentialFailed should be set for the attempt counter")
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Code != sca.CodePsuCredentialsInvalid {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
}

func TestAuthorisation_ConnectorDownKeepsStatus(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.AuthenticatePsuFn = func(ctx context.Context, data spi.ContextData, credential string) (*spi.PsuAuthenticationResult, error) {
		return nil, errors.New("backend timeout")
	}
	deps, _ := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})

	if resp.ErrorHolder == nil || !resp.ErrorHolder.IsTechnical() {
		t.Fatalf("expected technical error, got %+v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusReceived {
		t.Fatalf("technical failure must keep current status, got %s", resp.ScaStatus)
	}
}

func TestAuthorisation_Exemption(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.AuthenticatePsuFn = func(ctx context.Context, data spi.ContextData, credential string) (*spi.PsuAuthenticationResult, error) {
		return &spi.PsuAuthenticationResult{Status: spi.AuthenticationSuccess, ScaExempted: true}, nil
	}
	connector.ExecuteWithoutScaFn = func(ctx context.Context, data spi.ContextData) (*spi.ExecutionResult, error) {
		return &spi.ExecutionResult{Success: true, BusinessStatus: types.BusinessStatusAcceptedSettlement}, nil
	}
	deps, sink := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusExempted {
		t.Fatalf("status = %s, want EXEMPTED", resp.ScaStatus)
	}
	if connector.Calls("ListAvailableMethods") != 0 {
		t.Fatal("exemption short-circuits method listing")
	}
	if st, ok := sink.Status("pmt-1"); !ok || st != types.BusinessStatusAcceptedSettlement {
		t.Fatalf("parent status = %s, %v", st, ok)
	}
}

func TestAuthorisation_NoMethodsExecutesDirectly(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.AuthenticatePsuFn = func(ctx context.Context, data spi.ContextData, credential string) (*spi.PsuAuthenticationResult, error) {
		return &spi.PsuAuthenticationResult{Status: spi.AuthenticationSuccess}, nil
	}
	connector.ListAvailableMethodsFn = func(ctx context.Context, data spi.ContextData) (*spi.AvailableMethodsResult, error) {
		return &spi.AvailableMethodsResult{}, nil
	}
	connector.ExecuteWithoutScaFn = func(ctx context.Context, data spi.ContextData) (*spi.ExecutionResult, error) {
		return &spi.ExecutionResult{Success: true, BusinessStatus: types.BusinessStatusAcceptedSettlement}, nil
	}
	deps, sink := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})

	if resp.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("status = %s, want FINALISED", resp.ScaStatus)
	}
	if _, ok := sink.Status("pmt-1"); !ok {
		t.Fatal("parent status should be notified")
	}
}

func TestAuthorisation_SingleMethodAutoSelected(t *testing.T) {
	connector := spi.DemoConnector()
	deps, _ := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusScaMethodSelected {
		t.Fatalf("status = %s, want SCAMETHODSELECTED", resp.ScaStatus)
	}
	if resp.ChosenScaMethod == nil || resp.ChosenScaMethod.AuthenticationMethodID != "sms" {
		t.Fatalf("chosen method = %+v", resp.ChosenScaMethod)
	}
	if resp.ChallengeData == nil {
		t.Fatal("challenge data missing")
	}
	if resp.ScaAuthenticationData == "" {
		t.Fatal("sca authentication data should be carried for local confirmation")
	}
	if len(resp.AvailableScaMethods) != 1 {
		t.Fatalf("available methods = %d, want 1", len(resp.AvailableScaMethods))
	}
}

func TestAuthorisation_MultipleMethodsWaitForChoice(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.AuthenticatePsuFn = func(ctx context.Context, data spi.ContextData, credential string) (*spi.PsuAuthenticationResult, error) {
		return &spi.PsuAuthenticationResult{Status: spi.AuthenticationSuccess}, nil
	}
	connector.ListAvailableMethodsFn = func(ctx context.Context, data spi.ContextData) (*spi.AvailableMethodsResult, error) {
		return &spi.AvailableMethodsResult{Methods: []types.AuthenticationObject{
			{AuthenticationMethodID: "sms", AuthenticationType: "SMS_OTP"},
			{AuthenticationMethodID: "push", AuthenticationType: "PUSH_OTP", Decoupled: true},
		}}, nil
	}
	deps, _ := testDeps(connector)

	resp := Received(context.Background(), deps, testAuth(types.ScaStatusReceived), &sca.UpdateRequest{
		AuthorisationID: "auth-1",
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})

	if resp.ScaStatus != types.ScaStatusPsuAuthenticated {
		t.Fatalf("status = %s, want PSUAUTHENTICATED", resp.ScaStatus)
	}
	if len(resp.AvailableScaMethods) != 2 {
		t.Fatalf("available methods = %d, want 2", len(resp.AvailableScaMethods))
	}
	if connector.Calls("RequestAuthorisationCode") != 0 {
		t.Fatal("no challenge should be requested before the PSU chooses")
	}
}

// ─── Selección de método ───

func TestPsuAuthenticated_UnknownMethod(t *testing.T) {
	connector := spi.NewMockConnector()
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusPsuAuthenticated)
	auth.PsuData = types.PsuIdData{PsuID: "psu1"}
	auth.AvailableScaMethods = []types.AuthenticationObject{{AuthenticationMethodID: "sms"}}

	resp := PsuAuthenticated(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:        "auth-1",
		AuthenticationMethodID: "carrier-pigeon",
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Code != sca.CodeScaMethodUnknown {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
	if connector.Calls("RequestAuthorisationCode") != 0 {
		t.Fatal("unknown method must not reach the connector")
	}
}

func TestPsuAuthenticated_DecoupledCapableMethodSwitches(t *testing.T) {
	connector := spi.NewMockConnector()
	connector.StartDecoupledFn = func(ctx context.Context, data spi.ContextData, authorisationID string, methodID *string) (*spi.DecoupledResult, error) {
		return &spi.DecoupledResult{PsuMessage: "Please use your BankApp for transaction Authorisation"}, nil
	}
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusPsuAuthenticated)
	auth.PsuData = types.PsuIdData{PsuID: "psu1"}
	auth.AvailableScaMethods = []types.AuthenticationObject{
		{AuthenticationMethodID: "push", Decoupled: true},
	}

	resp := PsuAuthenticated(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:        "auth-1",
		AuthenticationMethodID: "push",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusScaMethodSelected {
		t.Fatalf("status = %s, want SCAMETHODSELECTED", resp.ScaStatus)
	}
	if resp.PsuMessage == "" {
		t.Fatal("psu message from connector should pass through")
	}
	if resp.ChosenScaMethod == nil || resp.ChosenScaMethod.AuthenticationMethodID != "push" {
		t.Fatalf("chosen method = %+v", resp.ChosenScaMethod)
	}
	if connector.Calls("RequestAuthorisationCode") != 0 {
		t.Fatal("decoupled switch must not request an embedded challenge")
	}
}

// ─── Decoupled ───

func TestDecoupled_WithoutPreChosenMethod(t *testing.T) {
	connector := spi.NewMockConnector()
	var gotMethodID *string
	connector.StartDecoupledFn = func(ctx context.Context, data spi.ContextData, authorisationID string, methodID *string) (*spi.DecoupledResult, error) {
		gotMethodID = methodID
		return &spi.DecoupledResult{PsuMessage: "Please use your BankApp for transaction Authorisation"}, nil
	}
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusPsuAuthenticated)
	auth.ScaApproach = types.ScaApproachDecoupled
	auth.PsuData = types.PsuIdData{PsuID: "psu1"}

	resp := Decoupled(context.Background(), deps, auth, &sca.UpdateRequest{AuthorisationID: "auth-1"})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if gotMethodID != nil {
		t.Fatal("method id should be nil when the PSU did not pre-choose")
	}
	if resp.ChosenScaMethod != nil {
		t.Fatal("chosen method should stay nil without a pre-chosen id")
	}
	if resp.PsuMessage != "Please use your BankApp for transaction Authorisation" {
		t.Fatalf("psu message = %q", resp.PsuMessage)
	}
}

// ─── Finalización ───

func TestScaMethodSelected_WithoutAuthenticationData(t *testing.T) {
	connector := spi.NewMockConnector()
	deps, _ := testDeps(connector)

	auth := testAuth(types.ScaStatusScaMethodSelected)
	resp := ScaMethodSelected(context.Background(), deps, auth, &sca.UpdateRequest{AuthorisationID: "auth-1"})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if connector.Calls("VerifyScaAndExecute") != 0 {
		t.Fatal("missing TAN must not reach the connector")
	}
}

func TestScaMethodSelected_WrongTan(t *testing.T) {
	connector := spi.DemoConnector()
	deps, sink := testDeps(connector)

	auth := testAuth(types.ScaStatusScaMethodSelected)
	resp := ScaMethodSelected(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:       "auth-1",
		ScaAuthenticationData: "000000",
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryScaInvalid {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
	if _, ok := sink.Status("pmt-1"); ok {
		t.Fatal("rejected TAN must not notify the parent")
	}
}

func TestScaMethodSelected_Success(t *testing.T) {
	connector := spi.DemoConnector()
	deps, sink := testDeps(connector)

	auth := testAuth(types.ScaStatusScaMethodSelected)
	resp := ScaMethodSelected(context.Background(), deps, auth, &sca.UpdateRequest{
		AuthorisationID:       "auth-1",
		ScaAuthenticationData: "123456",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("status = %s, want FINALISED", resp.ScaStatus)
	}
	if st, ok := sink.Status("pmt-1"); !ok || st != types.BusinessStatusAcceptedSettlement {
		t.Fatalf("parent status = %s, %v", st, ok)
	}
}
