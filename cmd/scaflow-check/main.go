// scaflow-check valida el cableado del engine sin red ni base: corre los
// flujos de negocio principales contra el store en memoria y falla con exit
// code 1 ante cualquier desvío. Pensado para CI y para verificar un refactor
// a mano.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dropDatabas3/scaflow/internal/domain/repository"
	"github.com/dropDatabas3/scaflow/internal/domain/types"
	"github.com/dropDatabas3/scaflow/internal/observability/logger"
	"github.com/dropDatabas3/scaflow/internal/profile"
	"github.com/dropDatabas3/scaflow/internal/sca"
	"github.com/dropDatabas3/scaflow/internal/sca/approach"
	"github.com/dropDatabas3/scaflow/internal/sca/chain"
	"github.com/dropDatabas3/scaflow/internal/sca/confirm"
	"github.com/dropDatabas3/scaflow/internal/sca/facade"
	"github.com/dropDatabas3/scaflow/internal/sca/stage"
	"github.com/dropDatabas3/scaflow/internal/spi"
	"github.com/dropDatabas3/scaflow/internal/store/memory"
)

func main() {
	logger.Init(logger.Config{Env: "dev", Level: "warn", ServiceName: "scaflow-check"})
	defer logger.Sync()

	ctx := context.Background()

	fmt.Println("[1] flujo embedded completo")
	checkEmbedded(ctx)

	fmt.Println("[2] confirmación local tras UNCONFIRMED")
	checkConfirmation(ctx)

	fmt.Println("OK")
}

func checkEmbedded(ctx context.Context) {
	payments, sink := wire(types.ScaApproachEmbedded)

	created, err := payments.CreateAuthorisation(ctx, "pmt-check", types.PsuIdData{})
	if err != nil {
		fatal("create:", err)
	}
	expectStatus(created.ScaStatus, types.ScaStatusReceived)

	resp := payments.UpdateAuthorisation(ctx, &sca.UpdateRequest{
		AuthorisationID: created.AuthorisationID,
		PsuData:         types.PsuIdData{PsuID: "psu1"},
		Password:        "secret",
	})
	if resp.HasError() {
		fatal("authenticate:", resp.ErrorHolder)
	}
	expectStatus(resp.ScaStatus, types.ScaStatusScaMethodSelected)

	resp = payments.UpdateAuthorisation(ctx, &sca.UpdateRequest{
		AuthorisationID:       created.AuthorisationID,
		ScaAuthenticationData: "123456",
	})
	if resp.HasError() {
		fatal("finalise:", resp.ErrorHolder)
	}
	expectStatus(resp.ScaStatus, types.ScaStatusFinalised)

	if _, ok := sink.Status("pmt-check"); !ok {
		fatal("sink:", fmt.Errorf("parent business status never notified"))
	}
}

func checkConfirmation(ctx context.Context) {
	repo := memory.New()
	sink := memory.NewStatusRecorder()
	connector := spi.DemoConnector()
	profiles := profile.Static{P: profile.Profile{
		DefaultScaApproach:            types.ScaApproachEmbedded,
		ConfirmationCodeCheckByEngine: true,
		AuthorisationTTL:              time.Hour,
	}}

	auth := &repository.Authorisation{
		ID:                    "auth-unconfirmed",
		ParentID:              "pmt-confirm",
		Type:                  types.AuthorisationTypePaymentCreation,
		ScaStatus:             types.ScaStatusUnconfirmed,
		ScaApproach:           types.ScaApproachRedirect,
		ScaAuthenticationData: "match-me",
		CreatedAt:             time.Now(),
	}
	if err := repo.Create(ctx, auth); err != nil {
		fatal("seed:", err)
	}

	confirmer := confirm.NewService(repo, connector, sink, profiles)
	resp := confirmer.Process(ctx, &sca.UpdateRequest{
		AuthorisationID:  auth.ID,
		ConfirmationCode: "match-me",
	})
	if resp.HasError() {
		fatal("confirm:", resp.ErrorHolder)
	}
	expectStatus(resp.ScaStatus, types.ScaStatusFinalised)
}

func wire(defaultApproach types.ScaApproach) (*facade.Facade, *memory.StatusRecorder) {
	repo := memory.New()
	sink := memory.NewStatusRecorder()
	connector := spi.DemoConnector()
	profiles := profile.Static{P: profile.Profile{
		DefaultScaApproach:            defaultApproach,
		ConfirmationCodeCheckByEngine: true,
		AuthorisationTTL:              time.Hour,
	}}

	deps := stage.Deps{Connector: connector, Sink: sink}
	confirmer := confirm.NewService(repo, connector, sink, profiles)
	resolver := approach.NewResolver(
		approach.NewEmbedded(repo, chain.New(deps, chain.EmbeddedStages()), confirmer),
		approach.NewDecoupled(repo, chain.New(deps, chain.DecoupledStages()), confirmer),
		approach.NewOAuth(),
	)
	return facade.NewPayment(repo, resolver, profiles), sink
}

func expectStatus(got, want types.ScaStatus) {
	if got != want {
		fatal("status:", fmt.Errorf("got %s, want %s", got, want))
	}
}

func fatal(prefix string, err error) {
	fmt.Fprintln(os.Stderr, "FAIL", prefix, err)
	os.Exit(1)
}
