// Package storemock is an in-memory unit of work for engine tests. Every
// WithinTx call is serialised and rolled back when fn returns an error.
package storemock

import (
	"context"
	"sync"
	"time"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/employee"
	"github.com/fsp-loan-gateway/internal/domain/loan"
	"github.com/fsp-loan-gateway/internal/domain/outbox"
	"github.com/fsp-loan-gateway/internal/domain/uow"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*Store)(nil)

type state struct {
	nextID       int64
	fsps         map[string]catalog.FSP
	products     map[int64]catalog.Product
	terms        map[int64]map[string]catalog.TermCondition
	employees    map[string]employee.Employee
	applications map[string]loan.Application
	deductions   []loan.Deduction
	repayments   []loan.Repayment
	outbox       []outbox.Message
}

// Store holds all records in memory
type Store struct {
	mu sync.Mutex
	st state

	// TxCount counts WithinTx invocations
	TxCount int
	// FailWith, when set, is returned by WithinTx without running fn
	FailWith error
}

func New() *Store {
	return &Store{st: state{
		fsps:         map[string]catalog.FSP{},
		products:     map[int64]catalog.Product{},
		terms:        map[int64]map[string]catalog.TermCondition{},
		employees:    map[string]employee.Employee{},
		applications: map[string]loan.Application{},
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TxCount++
	if s.FailWith != nil {
		return s.FailWith
	}

	snapshot := s.st.clone()
	repos := uow.Repos{
		FSPs:         fspRepo{s},
		Products:     productRepo{s},
		Employees:    employeeRepo{s},
		Applications: applicationRepo{s},
		Deductions:   deductionRepo{s},
		Repayments:   repaymentRepo{s},
		Outbox:       outboxRepo{s},
	}
	if err := fn(repos); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (st state) clone() state {
	c := state{
		nextID:       st.nextID,
		fsps:         make(map[string]catalog.FSP, len(st.fsps)),
		products:     make(map[int64]catalog.Product, len(st.products)),
		terms:        make(map[int64]map[string]catalog.TermCondition, len(st.terms)),
		employees:    make(map[string]employee.Employee, len(st.employees)),
		applications: make(map[string]loan.Application, len(st.applications)),
		deductions:   append([]loan.Deduction(nil), st.deductions...),
		repayments:   append([]loan.Repayment(nil), st.repayments...),
		outbox:       append([]outbox.Message(nil), st.outbox...),
	}
	for k, v := range st.fsps {
		c.fsps[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.terms {
		inner := make(map[string]catalog.TermCondition, len(v))
		for n, tc := range v {
			inner[n] = tc
		}
		c.terms[k] = inner
	}
	for k, v := range st.employees {
		c.employees[k] = v
	}
	for k, v := range st.applications {
		c.applications[k] = v
	}
	return c
}

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// Seed helpers and inspectors. They must not be called from inside WithinTx.

func (s *Store) AddFSP(fsp catalog.FSP) *catalog.FSP {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fsp.ID == 0 {
		fsp.ID = s.id()
	}
	s.st.fsps[fsp.Code] = fsp
	return &fsp
}

func (s *Store) AddProduct(p catalog.Product) *catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.st.products[p.ID] = p
	return &p
}

func (s *Store) AddApplication(app loan.Application) *loan.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == 0 {
		app.ID = s.id()
	}
	s.st.applications[app.ApplicationNumber] = app
	return &app
}

func (s *Store) AddDeduction(d loan.Deduction) *loan.Deduction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.id()
	}
	s.st.deductions = append(s.st.deductions, d)
	return &d
}

func (s *Store) Application(applicationNumber string) (loan.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.st.applications[applicationNumber]
	return app, ok
}

func (s *Store) Employee(checkNumber string) (employee.Employee, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.st.employees[checkNumber]
	return emp, ok
}

func (s *Store) FSP(code string) (catalog.FSP, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fsp, ok := s.st.fsps[code]
	return fsp, ok
}

func (s *Store) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.st.products))
	for _, p := range s.st.products {
		out = append(out, p)
	}
	return out
}

func (s *Store) TermConditions(productID int64) []catalog.TermCondition {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.TermCondition
	for _, tc := range s.st.terms[productID] {
		out = append(out, tc)
	}
	return out
}

func (s *Store) Deductions() []loan.Deduction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]loan.Deduction(nil), s.st.deductions...)
}

func (s *Store) Repayments() []loan.Repayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]loan.Repayment(nil), s.st.repayments...)
}

func (s *Store) OutboxMessages() []outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Message(nil), s.st.outbox...)
}

type fspRepo struct{ s *Store }

func (r fspRepo) GetByCode(ctx context.Context, code string) (*catalog.FSP, error) {
	fsp, ok := r.s.st.fsps[code]
	if !ok {
		return nil, catalog.ErrFSPNotFound{Code: code}
	}
	return &fsp, nil
}

func (r fspRepo) Upsert(ctx context.Context, fsp *catalog.FSP) error {
	if existing, ok := r.s.st.fsps[fsp.Code]; ok {
		if fsp.Name != "" {
			existing.Name = fsp.Name
		}
		existing.UpdatedAt = time.Now().UTC()
		r.s.st.fsps[fsp.Code] = existing
		*fsp = existing
		return nil
	}
	fsp.ID = r.s.id()
	if fsp.Name == "" {
		fsp.Name = fsp.Code
	}
	r.s.st.fsps[fsp.Code] = *fsp
	return nil
}

func (r fspRepo) WithTx(pgx.Tx) catalog.FSPRepository { return r }

type productRepo struct{ s *Store }

func (r productRepo) GetByCode(ctx context.Context, fspID int64, code string) (*catalog.Product, error) {
	for _, p := range r.s.st.products {
		if p.FSPID == fspID && p.Code == code {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound{ProductCode: code}
}

func (r productRepo) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound{ID: id}
	}
	return &p, nil
}

func (r productRepo) Upsert(ctx context.Context, product *catalog.Product) error {
	stored := *product
	stored.TermConditions = nil
	for id, p := range r.s.st.products {
		if p.FSPID == product.FSPID && p.Code == product.Code {
			stored.ID = id
			stored.CreatedAt = p.CreatedAt
			r.s.st.products[id] = stored
			product.ID = id
			return nil
		}
	}
	stored.ID = r.s.id()
	r.s.st.products[stored.ID] = stored
	product.ID = stored.ID
	return nil
}

func (r productRepo) UpsertTermCondition(ctx context.Context, tc *catalog.TermCondition) error {
	terms, ok := r.s.st.terms[tc.ProductID]
	if !ok {
		terms = map[string]catalog.TermCondition{}
		r.s.st.terms[tc.ProductID] = terms
	}
	if existing, ok := terms[tc.Number]; ok {
		tc.ID = existing.ID
	} else {
		tc.ID = r.s.id()
	}
	terms[tc.Number] = *tc
	return nil
}

func (r productRepo) Deactivate(ctx context.Context, fspID int64, codes []string) (int64, error) {
	var n int64
	for id, p := range r.s.st.products {
		if p.FSPID != fspID {
			continue
		}
		for _, code := range codes {
			if p.Code == code {
				p.IsActive = false
				r.s.st.products[id] = p
				n++
				break
			}
		}
	}
	return n, nil
}

func (r productRepo) WithTx(pgx.Tx) catalog.ProductRepository { return r }

type employeeRepo struct{ s *Store }

func (r employeeRepo) GetByCheckNumber(ctx context.Context, checkNumber string) (*employee.Employee, error) {
	emp, ok := r.s.st.employees[checkNumber]
	if !ok {
		return nil, employee.ErrEmployeeNotFound{CheckNumber: checkNumber}
	}
	return &emp, nil
}

func (r employeeRepo) Upsert(ctx context.Context, emp *employee.Employee) error {
	if existing, ok := r.s.st.employees[emp.CheckNumber]; ok {
		emp.ID = existing.ID
	} else {
		emp.ID = r.s.id()
	}
	r.s.st.employees[emp.CheckNumber] = *emp
	return nil
}

func (r employeeRepo) WithTx(pgx.Tx) employee.Repository { return r }

type applicationRepo struct{ s *Store }

func (r applicationRepo) Create(ctx context.Context, app *loan.Application) error {
	if _, ok := r.s.st.applications[app.ApplicationNumber]; ok {
		return loan.ErrDuplicateApplication{ApplicationNumber: app.ApplicationNumber}
	}
	app.ID = r.s.id()
	r.s.st.applications[app.ApplicationNumber] = *app
	return nil
}

func (r applicationRepo) GetByApplicationNumber(ctx context.Context, applicationNumber string) (*loan.Application, error) {
	app, ok := r.s.st.applications[applicationNumber]
	if !ok {
		return nil, loan.ErrApplicationNotFound{ApplicationNumber: applicationNumber}
	}
	return &app, nil
}

func (r applicationRepo) Update(ctx context.Context, app *loan.Application) error {
	stored, ok := r.s.st.applications[app.ApplicationNumber]
	if !ok || stored.Version != app.Version-1 {
		return loan.ErrConcurrentModification{ApplicationNumber: app.ApplicationNumber}
	}
	r.s.st.applications[app.ApplicationNumber] = *app
	return nil
}

func (r applicationRepo) LockByApplicationNumber(ctx context.Context, applicationNumber string) (*loan.Application, error) {
	return r.GetByApplicationNumber(ctx, applicationNumber)
}

func (r applicationRepo) LockByLoanNumber(ctx context.Context, loanNumber string) (*loan.Application, error) {
	for _, app := range r.s.st.applications {
		if app.LoanNumber != nil && *app.LoanNumber == loanNumber {
			return &app, nil
		}
	}
	return nil, loan.ErrApplicationNotFound{LoanNumber: loanNumber}
}

func (r applicationRepo) WithTx(pgx.Tx) loan.ApplicationRepository { return r }

type deductionRepo struct{ s *Store }

func (r deductionRepo) Create(ctx context.Context, d *loan.Deduction) error {
	d.ID = r.s.id()
	r.s.st.deductions = append(r.s.st.deductions, *d)
	return nil
}

func (r deductionRepo) GetActiveByApplication(ctx context.Context, applicationID int64) (*loan.Deduction, error) {
	for _, d := range r.s.st.deductions {
		if d.ApplicationID == applicationID && d.IsActive {
			return &d, nil
		}
	}
	return nil, loan.ErrNoActiveDeduction{ApplicationID: applicationID}
}

func (r deductionRepo) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	for i := range r.s.st.deductions {
		if r.s.st.deductions[i].ID == id {
			r.s.st.deductions[i].BalanceAmount = balance
			return nil
		}
	}
	return loan.ErrNoActiveDeduction{}
}

func (r deductionRepo) DeactivateByApplication(ctx context.Context, applicationID int64, reason string) (int64, error) {
	var n int64
	now := time.Now().UTC()
	for i := range r.s.st.deductions {
		d := &r.s.st.deductions[i]
		if d.ApplicationID == applicationID && d.IsActive {
			d.IsActive = false
			d.DeactivationReason = reason
			d.DeactivatedAt = &now
			n++
		}
	}
	return n, nil
}

func (r deductionRepo) WithTx(pgx.Tx) loan.DeductionRepository { return r }

type repaymentRepo struct{ s *Store }

func (r repaymentRepo) Create(ctx context.Context, repayment *loan.Repayment) error {
	repayment.ID = r.s.id()
	r.s.st.repayments = append(r.s.st.repayments, *repayment)
	return nil
}

func (r repaymentRepo) ListByLoanNumber(ctx context.Context, loanNumber string) ([]*loan.Repayment, error) {
	var out []*loan.Repayment
	for _, rp := range r.s.st.repayments {
		if rp.LoanNumber == loanNumber {
			rp := rp
			out = append(out, &rp)
		}
	}
	return out, nil
}

func (r repaymentRepo) WithTx(pgx.Tx) loan.RepaymentRepository { return r }

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	message.ID = r.s.id()
	r.s.st.outbox = append(r.s.st.outbox, *message)
	return nil
}

func (r outboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var out []*outbox.Message
	for _, m := range r.s.st.outbox {
		if m.Status == outbox.StatusPending && len(out) < limit {
			m := m
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r outboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	for i := range r.s.st.outbox {
		if r.s.st.outbox[i].ID == id {
			r.s.st.outbox[i].Status = status
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r outboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	for i := range r.s.st.outbox {
		if r.s.st.outbox[i].ID == id {
			r.s.st.outbox[i].Attempts++
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r outboxRepo) WithTx(pgx.Tx) outbox.Repository { return r }
