package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anagrafe/internal/domain"
)

// countingAPI is a registry.API that serves a fixed record and counts origin
// hits per operation.
type countingAPI struct {
	person  domain.Person
	gets    int
	creates int
	updates int
	deletes int
}

func (a *countingAPI) Get(_ context.Context, taxCode string) (domain.Person, error) {
	a.gets++
	p := a.person
	p.TaxCode = taxCode
	return p, nil
}

func (a *countingAPI) Create(_ context.Context, p domain.Person) error {
	a.creates++
	return nil
}

func (a *countingAPI) Update(_ context.Context, _ string, _ domain.Person) error {
	a.updates++
	return nil
}

func (a *countingAPI) Delete(_ context.Context, _ string) error {
	a.deletes++
	return nil
}

func (a *countingAPI) List(context.Context) ([]domain.Person, error) {
	return []domain.Person{a.person}, nil
}

func (a *countingAPI) SearchByName(context.Context, string) ([]domain.Person, error) {
	return []domain.Person{a.person}, nil
}

func person(name string) domain.Person {
	return domain.Person{
		TaxCode: "RSSMRA85T10A562S",
		Name:    name,
		Surname: "Rossi",
	}
}

func TestGetIsReadThrough(t *testing.T) {
	ctx := context.Background()
	api := &countingAPI{person: person("Mario")}
	reg := Wrap(api, NewMemoryStore(time.Minute), nil)

	first, err := reg.Get(ctx, "rssmra85t10a562s")
	require.NoError(t, err)

	second, err := reg.Get(ctx, "RSSMRA85T10A562S")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.gets, "second lookup must be served from cache")
}

func TestMutationsEvict(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(reg *Registry) error
	}{
		{"update", func(reg *Registry) error {
			return reg.Update(ctx, "RSSMRA85T10A562S", person("Maria"))
		}},
		{"delete", func(reg *Registry) error {
			return reg.Delete(ctx, "RSSMRA85T10A562S")
		}},
		{"create", func(reg *Registry) error {
			return reg.Create(ctx, person("Mario"))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &countingAPI{person: person("Mario")}
			reg := Wrap(api, NewMemoryStore(time.Minute), nil)

			_, err := reg.Get(ctx, "RSSMRA85T10A562S")
			require.NoError(t, err)
			require.Equal(t, 1, api.gets)

			require.NoError(t, tc.mutate(reg))

			// The reconciling read must reach the origin, not the cache.
			_, err = reg.Get(ctx, "RSSMRA85T10A562S")
			require.NoError(t, err)
			assert.Equal(t, 2, api.gets)
		})
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	require.NoError(t, store.Save(ctx, person("Mario")))

	_, ok, err := store.Find(ctx, "RSSMRA85T10A562S")
	require.NoError(t, err)
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)

	_, ok, err = store.Find(ctx, "RSSMRA85T10A562S")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be served")
}

func TestEvictUnknownKeyIsNoop(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	assert.NoError(t, store.Evict(context.Background(), "RSSMRA85T10A562S"))
}
