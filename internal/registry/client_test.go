package registry

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks API

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anagrafe/internal/domain"
	"anagrafe/pkg/sentinel"
)

func testPerson() domain.Person {
	return domain.Person{
		TaxCode: "RSSMRA85T10A562S",
		Name:    "Mario",
		Surname: "Rossi",
		Address: domain.Address{
			Street:   "Via Roma",
			StreetNo: "12",
			City:     "Milano",
			Province: "MI",
			Country:  "Italia",
		},
	}
}

func TestCreateNormalizesPayload(t *testing.T) {
	var got domain.Person
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/person", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	p := testPerson()
	p.TaxCode = " rssmra85t10a562s "
	p.Address.Province = "mi"

	err := NewClient(srv.URL).Create(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "RSSMRA85T10A562S", got.TaxCode)
	assert.Equal(t, "MI", got.Address.Province)
}

func TestCreateFailureMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, sentinel.ErrConflict},
		{"bad request", http.StatusBadRequest, sentinel.ErrRejected},
		{"unprocessable", http.StatusUnprocessableEntity, sentinel.ErrRejected},
		{"server error", http.StatusInternalServerError, sentinel.ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Create(context.Background(), testPerson())

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetNormalizesLookupKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person/RSSMRA85T10A562S", r.URL.Path)
		_ = json.NewEncoder(w).Encode(testPerson())
	}))
	defer srv.Close()

	p, err := NewClient(srv.URL).Get(context.Background(), " rssmra85t10a562s ")

	require.NoError(t, err)
	assert.Equal(t, testPerson(), p)
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Get(context.Background(), "RSSMRA85T10A562S")

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, CategoryNotFound, CategoryOf(err))
}

func TestUpdateForcesPathIdentity(t *testing.T) {
	var got domain.Person
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/person/RSSMRA85T10A562S", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := testPerson()
	p.TaxCode = "VRDLGI80A01H501X" // diverging body identity must be overridden

	err := NewClient(srv.URL).Update(context.Background(), "rssmra85t10a562s", p)

	require.NoError(t, err)
	assert.Equal(t, "RSSMRA85T10A562S", got.TaxCode)
}

func TestUpdateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Update(context.Background(), "RSSMRA85T10A562S", testPerson())

	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/person/RSSMRA85T10A562S", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		assert.NoError(t, NewClient(srv.URL).Delete(context.Background(), "rssmra85t10a562s"))
	})

	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		err := NewClient(srv.URL).Delete(context.Background(), "RSSMRA85T10A562S")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/person", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]domain.Person{testPerson()})
	}))
	defer srv.Close()

	persons, err := NewClient(srv.URL).List(context.Background())

	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, testPerson(), persons[0])
}

func TestSearchByName(t *testing.T) {
	t.Run("sends query", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/person/search", r.URL.Path)
			assert.Equal(t, "Rossi", r.URL.Query().Get("name"))
			_ = json.NewEncoder(w).Encode([]domain.Person{testPerson()})
		}))
		defer srv.Close()

		persons, err := NewClient(srv.URL).SearchByName(context.Background(), "Rossi")

		require.NoError(t, err)
		assert.Len(t, persons, 1)
	})

	t.Run("empty query rejected before any request", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		for _, query := range []string{"", "   ", "\t"} {
			_, err := NewClient(srv.URL).SearchByName(context.Background(), query)
			assert.ErrorIs(t, err, sentinel.ErrValidation)
		}
		assert.Equal(t, int64(0), hits.Load())
	})
}
