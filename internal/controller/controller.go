// Package controller orchestrates the client-side state of the person
// registry: one active-person slot (the record being viewed or edited) and
// two independent browse slots (name-search results, full listing).
//
// Every mutating operation that succeeds re-reads the canonical record before
// committing local state, so server-side normalization and defaults stay
// authoritative over whatever the client submitted.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"anagrafe/internal/audit"
	"anagrafe/internal/controller/metrics"
	"anagrafe/internal/domain"
	"anagrafe/internal/registry"
	"anagrafe/pkg/sentinel"
)

// Kind classifies a status for presentation.
type Kind string

const (
	KindOK    Kind = "ok"
	KindInfo  Kind = "info"
	KindError Kind = "error"
)

// Status is the single human-readable outcome of a controller operation.
type Status struct {
	Kind    Kind
	Message string
}

func ok(msg string) Status   { return Status{Kind: KindOK, Message: msg} }
func info(msg string) Status { return Status{Kind: KindInfo, Message: msg} }
func fail(msg string) Status { return Status{Kind: KindError, Message: msg} }

// User-facing messages. The controller converts every failure into one of
// these plus an unchanged-or-reset state; raw errors stay in the logs.
const (
	msgInvalidTaxCode  = "tax code must be 16 letters or digits"
	msgInvalidProvince = "province must be two letters (e.g. MI)"
	msgNotFound        = "person not found"
	msgGone            = "person no longer exists"
	msgConflict        = "tax code already registered"
	msgRejected        = "registry rejected the record"
	msgUnavailable     = "registry unavailable"
	msgNoActive        = "no person loaded"
	msgUnconfirmed     = "delete not confirmed"
	msgEmptyQuery      = "search query must not be empty"
	msgNoMatches       = "no matches"
	msgSaved           = "saved"
	msgDeleted         = "deleted"
	msgSuperseded      = "superseded by a newer action"
	msgReloadFailed    = "saved, but reloading the record failed"
)

// CreateForm carries the flat field set of the create form.
type CreateForm struct {
	TaxCode  string
	Name     string
	Surname  string
	Street   string
	StreetNo string
	City     string
	Province string
	Country  string
}

func (f CreateForm) person() domain.Person {
	return domain.Person{
		TaxCode: domain.NormalizeTaxCode(f.TaxCode),
		Name:    f.Name,
		Surname: f.Surname,
		Address: domain.Address{
			Street:   f.Street,
			StreetNo: f.StreetNo,
			City:     f.City,
			Province: domain.NormalizeProvince(f.Province),
			Country:  f.Country,
		},
	}
}

// Controller owns the three state slots and serializes commits to them.
//
// Overlapping operations are resolved with per-slot sequence numbers: each
// operation captures its slot's sequence when it starts and commits only if
// the sequence is still current when its responses arrive. A response that
// lost the race is discarded whole; slots are never left half-updated.
type Controller struct {
	api     registry.API
	log     *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher

	mu          sync.Mutex
	active      *domain.Person
	buffer      domain.EditBuffer
	deleteArmed bool
	results     []domain.Person
	listing     []domain.Person
	status      Status

	activeSeq  uint64
	resultsSeq uint64
	listingSeq uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger attaches a structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches controller metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithAudit attaches an audit publisher for mutating operations.
func WithAudit(p audit.Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.audit = p
		}
	}
}

// New constructs a Controller over the given registry API.
func New(api registry.API, opts ...Option) *Controller {
	c := &Controller{
		api:   api,
		log:   slog.Default(),
		audit: audit.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SearchByTaxCode looks up one person by identity and, on success, makes it
// the active record with a fresh edit buffer. Invalid input resets the active
// slot without issuing a request; a not-found outcome also resets it.
func (c *Controller) SearchByTaxCode(ctx context.Context, input string) Status {
	start := time.Now()

	if !domain.IsValidTaxCode(input) {
		c.mu.Lock()
		c.activeSeq++
		c.clearActiveLocked()
		st := c.setStatusLocked(fail(msgInvalidTaxCode))
		c.mu.Unlock()
		c.metrics.Record("search_tax_code", string(registry.CategoryValidation), time.Since(start))
		return st
	}
	code := domain.NormalizeTaxCode(input)

	seq := c.beginActive()
	p, err := c.api.Get(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentActiveLocked(seq) {
		c.metrics.Record("search_tax_code", "superseded", time.Since(start))
		return info(msgSuperseded)
	}

	switch {
	case err == nil:
		c.adoptLocked(p)
		c.metrics.Record("search_tax_code", "ok", time.Since(start))
		return c.setStatusLocked(ok(""))
	case errors.Is(err, sentinel.ErrNotFound):
		c.clearActiveLocked()
		c.metrics.Record("search_tax_code", string(registry.CategoryNotFound), time.Since(start))
		return c.setStatusLocked(fail(msgNotFound))
	default:
		// Transport failure: the previously loaded record stays intact.
		c.log.WarnContext(ctx, "search by tax code failed", "tax_code", code, "error", err)
		c.metrics.Record("search_tax_code", string(registry.CategoryOf(err)), time.Since(start))
		return c.setStatusLocked(fail(msgUnavailable))
	}
}

// CreatePerson validates the form (tax code before province, short-circuit),
// submits the new record and, on success, re-reads the canonical record and
// adopts it as the active person. Any failure leaves state unchanged.
func (c *Controller) CreatePerson(ctx context.Context, form CreateForm) Status {
	start := time.Now()

	if !domain.IsValidTaxCode(form.TaxCode) {
		c.metrics.Record("create", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgInvalidTaxCode))
	}
	if !domain.IsValidProvince(form.Province) {
		c.metrics.Record("create", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgInvalidProvince))
	}

	payload := form.person()
	seq := c.beginActive()

	err := c.api.Create(ctx, payload)
	if err != nil {
		c.emitAudit(ctx, audit.ActionCreate, payload.TaxCode, string(registry.CategoryOf(err)))
		c.metrics.Record("create", string(registry.CategoryOf(err)), time.Since(start))
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return c.setStatus(fail(msgConflict))
		case errors.Is(err, sentinel.ErrRejected):
			return c.setStatus(fail(msgRejected))
		default:
			c.log.WarnContext(ctx, "create failed", "tax_code", payload.TaxCode, "error", err)
			return c.setStatus(fail(msgUnavailable))
		}
	}
	c.emitAudit(ctx, audit.ActionCreate, payload.TaxCode, "ok")

	// Read-after-write: the server's stored shape wins over the submitted one.
	p, err := c.api.Get(ctx, payload.TaxCode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentActiveLocked(seq) {
		c.metrics.Record("create", "superseded", time.Since(start))
		return info(msgSuperseded)
	}
	if err != nil {
		c.log.WarnContext(ctx, "reconciling read after create failed", "tax_code", payload.TaxCode, "error", err)
		c.metrics.Record("create", string(registry.CategoryOf(err)), time.Since(start))
		return c.setStatusLocked(fail(msgReloadFailed))
	}
	c.adoptLocked(p)
	c.metrics.Record("create", "ok", time.Since(start))
	return c.setStatusLocked(ok(msgSaved))
}

// UpdatePerson replaces the mutable fields of the currently loaded record
// with the buffer's content. The request is keyed by the loaded record's tax
// code, never by anything typed into the buffer. On success the record is
// re-read and the active slot replaced wholesale.
func (c *Controller) UpdatePerson(ctx context.Context, buf domain.EditBuffer) Status {
	start := time.Now()

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		c.metrics.Record("update", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgNoActive))
	}
	code := c.active.TaxCode
	c.mu.Unlock()

	if !domain.IsValidProvince(buf.Province) {
		c.metrics.Record("update", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgInvalidProvince))
	}

	seq := c.beginActive()
	err := c.api.Update(ctx, code, buf.Person(code))
	if err != nil {
		c.emitAudit(ctx, audit.ActionUpdate, code, string(registry.CategoryOf(err)))
		c.metrics.Record("update", string(registry.CategoryOf(err)), time.Since(start))
		// The loaded record is preserved even when the server no longer has it;
		// the operator decides what to do next.
		if errors.Is(err, sentinel.ErrNotFound) {
			return c.setStatus(fail(msgGone))
		}
		c.log.WarnContext(ctx, "update failed", "tax_code", code, "error", err)
		return c.setStatus(fail(msgUnavailable))
	}
	c.emitAudit(ctx, audit.ActionUpdate, code, "ok")

	p, err := c.api.Get(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentActiveLocked(seq) {
		c.metrics.Record("update", "superseded", time.Since(start))
		return info(msgSuperseded)
	}
	if err != nil {
		c.log.WarnContext(ctx, "reconciling read after update failed", "tax_code", code, "error", err)
		c.metrics.Record("update", string(registry.CategoryOf(err)), time.Since(start))
		return c.setStatusLocked(fail(msgReloadFailed))
	}
	c.adoptLocked(p)
	c.metrics.Record("update", "ok", time.Since(start))
	return c.setStatusLocked(ok(msgSaved))
}

// ArmDelete arms the irreversible-action guard for the loaded record.
// DeletePerson refuses to issue a request until this has been called.
func (c *Controller) ArmDelete() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return c.setStatusLocked(fail(msgNoActive))
	}
	c.deleteArmed = true
	return c.setStatusLocked(info("confirm delete of " + c.active.TaxCode))
}

// DeletePerson removes the loaded record, provided ArmDelete was called
// first. On success the active slot empties; on failure the loaded record is
// retained unchanged.
func (c *Controller) DeletePerson(ctx context.Context) Status {
	start := time.Now()

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		c.metrics.Record("delete", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgNoActive))
	}
	if !c.deleteArmed {
		c.mu.Unlock()
		c.metrics.Record("delete", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgUnconfirmed))
	}
	code := c.active.TaxCode
	c.deleteArmed = false
	c.activeSeq++
	seq := c.activeSeq
	c.mu.Unlock()

	err := c.api.Delete(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentActiveLocked(seq) {
		c.metrics.Record("delete", "superseded", time.Since(start))
		return info(msgSuperseded)
	}
	if err != nil {
		c.emitAudit(ctx, audit.ActionDelete, code, string(registry.CategoryOf(err)))
		c.metrics.Record("delete", string(registry.CategoryOf(err)), time.Since(start))
		if errors.Is(err, sentinel.ErrNotFound) {
			return c.setStatusLocked(fail(msgGone))
		}
		c.log.WarnContext(ctx, "delete failed", "tax_code", code, "error", err)
		return c.setStatusLocked(fail(msgUnavailable))
	}
	c.emitAudit(ctx, audit.ActionDelete, code, "ok")
	c.clearActiveLocked()
	c.metrics.Record("delete", "ok", time.Since(start))
	return c.setStatusLocked(ok(msgDeleted))
}

// SearchByName runs a name/surname search, independent of the active-person
// slot. Empty queries are rejected locally. Zero results is not an error: the
// empty set is stored and a "no matches" message surfaced.
func (c *Controller) SearchByName(ctx context.Context, query string) Status {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		c.metrics.Record("search_name", string(registry.CategoryValidation), time.Since(start))
		return c.setStatus(fail(msgEmptyQuery))
	}

	seq := c.beginResults()
	persons, err := c.api.SearchByName(ctx, query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentResultsLocked(seq) {
		c.metrics.Record("search_name", "superseded", time.Since(start))
		return info(msgSuperseded)
	}
	if err != nil {
		c.log.WarnContext(ctx, "search by name failed", "error", err)
		c.metrics.Record("search_name", string(registry.CategoryOf(err)), time.Since(start))
		return c.setStatusLocked(fail(msgUnavailable))
	}
	c.results = persons
	c.metrics.Record("search_name", "ok", time.Since(start))
	if len(persons) == 0 {
		return c.setStatusLocked(info(msgNoMatches))
	}
	return c.setStatusLocked(ok(""))
}

// LoadAll replaces the full browse listing. On failure the listing is cleared
// rather than left stale.
func (c *Controller) LoadAll(ctx context.Context) Status {
	start := time.Now()

	seq := c.beginListing()
	persons, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentListingLocked(seq) {
		c.metrics.Record("list", "superseded", time.Since(start))
		return info(msgSuperseded)
	}
	if err != nil {
		c.listing = nil
		c.log.WarnContext(ctx, "listing failed", "error", err)
		c.metrics.Record("list", string(registry.CategoryOf(err)), time.Since(start))
		return c.setStatusLocked(fail(msgUnavailable))
	}
	c.listing = persons
	c.metrics.Record("list", "ok", time.Since(start))
	return c.setStatusLocked(ok(""))
}

// Select adopts an already-fetched row (from the listing or name-search
// results) as the active record without an extra round-trip. The fetched
// record is trusted as current, same as a fresh load.
func (c *Controller) Select(p domain.Person) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeSeq++
	c.adoptLocked(p)
	return c.setStatusLocked(ok(""))
}

// Clear discards the active record and its edit buffer.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeSeq++
	c.clearActiveLocked()
	c.status = Status{}
}

// Active returns the loaded record, if any.
func (c *Controller) Active() (domain.Person, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return domain.Person{}, false
	}
	return *c.active, true
}

// Buffer returns the current edit buffer.
func (c *Controller) Buffer() domain.EditBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// Results returns the name-search result slot.
func (c *Controller) Results() []domain.Person {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Person, len(c.results))
	copy(out, c.results)
	return out
}

// Listing returns the full-listing slot.
func (c *Controller) Listing() []domain.Person {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Person, len(c.listing))
	copy(out, c.listing)
	return out
}

// LastStatus returns the most recently committed status.
func (c *Controller) LastStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// adoptLocked installs a freshly read record into the active slot and
// projects its edit buffer. Supersedes, never merges.
func (c *Controller) adoptLocked(p domain.Person) {
	c.active = &p
	c.buffer = domain.ToEditBuffer(p)
	c.deleteArmed = false
}

func (c *Controller) clearActiveLocked() {
	c.active = nil
	c.buffer = domain.EditBuffer{}
	c.deleteArmed = false
}

func (c *Controller) setStatus(st Status) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setStatusLocked(st)
}

func (c *Controller) setStatusLocked(st Status) Status {
	c.status = st
	return st
}

func (c *Controller) beginActive() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeSeq++
	return c.activeSeq
}

func (c *Controller) beginResults() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultsSeq++
	return c.resultsSeq
}

func (c *Controller) beginListing() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listingSeq++
	return c.listingSeq
}

func (c *Controller) currentActiveLocked(seq uint64) bool  { return c.activeSeq == seq }
func (c *Controller) currentResultsLocked(seq uint64) bool { return c.resultsSeq == seq }
func (c *Controller) currentListingLocked(seq uint64) bool { return c.listingSeq == seq }

func (c *Controller) emitAudit(ctx context.Context, action audit.Action, taxCode, outcome string) {
	c.audit.Emit(ctx, audit.Event{
		Action:  action,
		TaxCode: taxCode,
		Outcome: outcome,
		At:      time.Now(),
	})
}
