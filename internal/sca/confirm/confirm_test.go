package confirm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/spi"
	"github.com/dropDatabas3/scaflow/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

func seed(t *testing.T, repo *memory.Store, status types.ScaStatus, storedCode string) {
	t.Helper()
	err := repo.Create(context.Background(), &repository.Authorisation{
		ID:                    "auth-1",
		ParentID:              "pmt-1",
		Type:                  types.AuthorisationTypePaymentCreation,
		ScaStatus:             status,
		ScaApproach:           types.ScaApproachRedirect,
		ScaAuthenticationData: storedCode,
		CreatedAt:             time.Now(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func localProfiles() profile.Source {
	return profile.Static{P: profile.Profile{
		DefaultScaApproach:            types.ScaApproachRedirect,
		ConfirmationCodeCheckByEngine: true,
	}}
}

func delegatedProfiles() profile.Source {
	return profile.Static{P: profile.Profile{
		DefaultScaApproach:            types.ScaApproachRedirect,
		ConfirmationCodeCheckByEngine: false,
	}}
}

func TestConfirm_LocalMatchFinalisesAndPersists(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, "code-77")
	svc := NewService(repo, spi.NewMockConnector(), memory.NewStatusRecorder(), localProfiles())

	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if resp.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("status = %s, want FINALISED", resp.ScaStatus)
	}
	if !resp.Persisted {
		t.Fatal("confirmation must mark the response as persisted")
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("stored status = %s, want FINALISED", stored.ScaStatus)
	}
}

func TestConfirm_LocalBcryptMaterial(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("code-77"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, string(hash))
	svc := NewService(repo, spi.NewMockConnector(), memory.NewStatusRecorder(), localProfiles())

	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})
	if resp.HasError() || resp.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("bcrypt material should match: %+v", resp)
	}
}

func TestConfirm_LocalMismatchFailsAndPersists(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, "code-77")
	sink := memory.NewStatusRecorder()
	svc := NewService(repo, spi.NewMockConnector(), sink, localProfiles())

	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "wrong",
	})

	if resp.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("status = %s, want FAILED", resp.ScaStatus)
	}
	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryScaInvalid {
		t.Fatalf("unexpected error holder: %+v", resp.ErrorHolder)
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusFailed {
		t.Fatalf("stored status = %s, want FAILED", stored.ScaStatus)
	}
	if _, ok := sink.Status("pmt-1"); ok {
		t.Fatal("local mode must not touch the parent status sink")
	}
}

func TestConfirm_RejectsWhenNotUnconfirmed(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusScaMethodSelected, "code-77")
	connector := spi.NewMockConnector()
	svc := NewService(repo, connector, memory.NewStatusRecorder(), delegatedProfiles())

	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})

	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryStatusInvalid {
		t.Fatalf("expected STATUS_INVALID, got %+v", resp.ErrorHolder)
	}
	if connector.Calls("ValidateConfirmationCode") != 0 {
		t.Fatal("wrong state must not reach the connector")
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusScaMethodSelected {
		t.Fatal("record must stay untouched")
	}
}

func TestConfirm_UnknownAuthorisation(t *testing.T) {
	svc := NewService(memory.New(), spi.NewMockConnector(), memory.NewStatusRecorder(), localProfiles())
	resp := svc.Process(context.Background(), &sca.UpdateRequest{AuthorisationID: "nope", ConfirmationCode: "x"})
	if resp.ErrorHolder == nil || resp.ErrorHolder.Category != sca.CategoryResourceUnknown {
		t.Fatalf("expected RESOURCE_UNKNOWN, got %+v", resp.ErrorHolder)
	}
}

func TestConfirm_DelegatedNotifiesSinkExactlyOnce(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, "")

	var sinkCalls int32
	sink := countingSink{calls: &sinkCalls}

	connector := spi.NewMockConnector()
	connector.ValidateConfirmationCodeFn = func(ctx context.Context, data spi.ContextData, code string) (*spi.ConfirmationResult, error) {
		return &spi.ConfirmationResult{
			ScaStatus:      types.ScaStatusFinalised,
			BusinessStatus: types.BusinessStatusAcceptedSettlement,
		}, nil
	}

	svc := NewService(repo, connector, sink, delegatedProfiles())
	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})

	if resp.HasError() {
		t.Fatalf("unexpected error: %v", resp.ErrorHolder)
	}
	if got := atomic.LoadInt32(&sinkCalls); got != 1 {
		t.Fatalf("sink calls = %d, want 1", got)
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("stored status = %s, want FINALISED", stored.ScaStatus)
	}
}

func TestConfirm_DelegatedConnectorDownKeepsRecord(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, "")

	connector := spi.NewMockConnector()
	connector.ValidateConfirmationCodeFn = func(ctx context.Context, data spi.ContextData, code string) (*spi.ConfirmationResult, error) {
		return nil, errors.New("backend down")
	}

	svc := NewService(repo, connector, memory.NewStatusRecorder(), delegatedProfiles())
	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})

	if resp.ErrorHolder == nil || !resp.ErrorHolder.IsTechnical() {
		t.Fatalf("expected technical error, got %+v", resp.ErrorHolder)
	}
	if resp.Persisted {
		t.Fatal("technical failure must not claim persistence")
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusUnconfirmed {
		t.Fatal("record must stay in UNCONFIRMED so the caller can retry")
	}
}

func TestConfirm_DelegatedSinkFailureDoesNotRevert(t *testing.T) {
	repo := memory.New()
	seed(t, repo, types.ScaStatusUnconfirmed, "")

	connector := spi.NewMockConnector()
	connector.ValidateConfirmationCodeFn = func(ctx context.Context, data spi.ContextData, code string) (*spi.ConfirmationResult, error) {
		return &spi.ConfirmationResult{ScaStatus: types.ScaStatusFinalised, BusinessStatus: types.BusinessStatusAcceptedSettlement}, nil
	}

	svc := NewService(repo, connector, failingSink{}, delegatedProfiles())
	resp := svc.Process(context.Background(), &sca.UpdateRequest{
		AuthorisationID:  "auth-1",
		ConfirmationCode: "code-77",
	})

	// Frontera at-least-once: la autorización ya es final, el fallo del sink
	// solo se loguea.
	if resp.HasError() {
		t.Fatalf("sink failure must not surface as error: %v", resp.ErrorHolder)
	}
	stored, _ := repo.Get(context.Background(), "auth-1")
	if stored.ScaStatus != types.ScaStatusFinalised {
		t.Fatalf("stored status = %s, want FINALISED", stored.ScaStatus)
	}
}

type countingSink struct{ calls *int32 }

func (s countingSink) UpdateBusinessStatus(ctx context.Context, parentID string, t types.AuthorisationType, status types.BusinessStatus) error {
	atomic.AddInt32(s.calls, 1)
	return nil
}

type failingSink struct{}

func (failingSink) UpdateBusinessStatus(ctx context.Context, parentID string, t types.AuthorisationType, status types.BusinessStatus) error {
	return errors.New("cms unavailable")
}
