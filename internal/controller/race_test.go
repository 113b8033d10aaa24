package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anagrafe/internal/controller"
	"anagrafe/internal/domain"
)

// blockingAPI serves Get from a function so a test can hold one lookup open
// while another completes.
type blockingAPI struct {
	getFunc func(ctx context.Context, taxCode string) (domain.Person, error)
}

func (a *blockingAPI) Get(ctx context.Context, taxCode string) (domain.Person, error) {
	return a.getFunc(ctx, taxCode)
}

func (a *blockingAPI) Create(context.Context, domain.Person) error { panic("unexpected Create") }
func (a *blockingAPI) Update(context.Context, string, domain.Person) error {
	panic("unexpected Update")
}
func (a *blockingAPI) Delete(context.Context, string) error { panic("unexpected Delete") }
func (a *blockingAPI) List(context.Context) ([]domain.Person, error) {
	panic("unexpected List")
}
func (a *blockingAPI) SearchByName(context.Context, string) ([]domain.Person, error) {
	panic("unexpected SearchByName")
}

// A lookup that started first but finished last must not overwrite the state
// committed by the lookup that superseded it.
func TestStaleLookupResponseIsDiscarded(t *testing.T) {
	const (
		slowCode = "AAABBB11C22D333E"
		fastCode = "FFFGGG44H55I666J"
	)

	slowStarted := make(chan struct{})
	release := make(chan struct{})

	api := &blockingAPI{
		getFunc: func(_ context.Context, taxCode string) (domain.Person, error) {
			if taxCode == slowCode {
				close(slowStarted)
				<-release
			}
			return domain.Person{TaxCode: taxCode, Name: "N-" + taxCode}, nil
		},
	}
	ctrl := controller.New(api)

	slowDone := make(chan controller.Status)
	go func() {
		slowDone <- ctrl.SearchByTaxCode(context.Background(), slowCode)
	}()
	<-slowStarted

	fast := ctrl.SearchByTaxCode(context.Background(), fastCode)
	require.Equal(t, controller.KindOK, fast.Kind)

	close(release)
	slow := <-slowDone

	assert.Equal(t, controller.KindInfo, slow.Kind, "the stale lookup must report being superseded")
	p, loaded := ctrl.Active()
	require.True(t, loaded)
	assert.Equal(t, fastCode, p.TaxCode, "the later-started lookup owns the slot")
}
