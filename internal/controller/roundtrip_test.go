package controller_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anagrafe/internal/controller"
	"anagrafe/internal/registry"
	"anagrafe/internal/stubserver"
)

// Full stack: controller → HTTP client → stub registry. Exercises the
// read-after-write protocol against real server-side normalization.
func TestRegistryRoundTrip(t *testing.T) {
	srv := httptest.NewServer(stubserver.New(nil).Router())
	defer srv.Close()

	ctx := context.Background()
	ctrl := controller.New(registry.NewClient(srv.URL))

	form := controller.CreateForm{
		TaxCode:  "rssmra85t10a562s",
		Name:     "  Mario  ", // the server trims; the client must reconcile
		Surname:  "Rossi",
		Street:   "Via Roma",
		StreetNo: "12",
		City:     "Milano",
		Province: "mi",
		Country:  "Italia",
	}

	st := ctrl.CreatePerson(ctx, form)
	require.Equal(t, controller.KindOK, st.Kind, st.Message)

	created, loaded := ctrl.Active()
	require.True(t, loaded)
	assert.Equal(t, "RSSMRA85T10A562S", created.TaxCode)
	assert.Equal(t, "Mario", created.Name, "server-side trimming is authoritative")
	assert.Equal(t, "MI", created.Address.Province)

	// A fresh lookup must equal the state adopted after create.
	st = ctrl.SearchByTaxCode(ctx, "RSSMRA85T10A562S")
	require.Equal(t, controller.KindOK, st.Kind)
	found, _ := ctrl.Active()
	assert.Equal(t, created, found)

	// Update through the edit buffer; identity stays put.
	buf := ctrl.Buffer()
	buf.Surname = "Rossi-Bianchi"
	buf.Province = "to"
	st = ctrl.UpdatePerson(ctx, buf)
	require.Equal(t, controller.KindOK, st.Kind, st.Message)

	updated, _ := ctrl.Active()
	assert.Equal(t, "RSSMRA85T10A562S", updated.TaxCode)
	assert.Equal(t, "Rossi-Bianchi", updated.Surname)
	assert.Equal(t, "TO", updated.Address.Province)

	// Duplicate create surfaces the conflict and leaves state alone.
	st = ctrl.CreatePerson(ctx, form)
	assert.Equal(t, controller.KindError, st.Kind)
	still, loaded := ctrl.Active()
	require.True(t, loaded)
	assert.Equal(t, updated, still)

	// Browse flows see the record too.
	require.Equal(t, controller.KindOK, ctrl.LoadAll(ctx).Kind)
	assert.Len(t, ctrl.Listing(), 1)
	require.Equal(t, controller.KindOK, ctrl.SearchByName(ctx, "rossi").Kind)
	assert.Len(t, ctrl.Results(), 1)

	// Confirmed delete empties the slot; the record is gone server-side.
	ctrl.ArmDelete()
	st = ctrl.DeletePerson(ctx)
	require.Equal(t, controller.KindOK, st.Kind)
	_, loaded = ctrl.Active()
	assert.False(t, loaded)

	st = ctrl.SearchByTaxCode(ctx, "RSSMRA85T10A562S")
	assert.Equal(t, controller.KindError, st.Kind)
}
