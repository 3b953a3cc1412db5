package signing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"hr-center/internal/models"
	"hr-center/internal/opensign"
	"hr-center/internal/pdf"
	"hr-center/internal/vault"
	"hr-center/internal/workflow"
)

type fakeAssignments struct {
	mu    sync.Mutex
	rows  map[uint]*models.DocumentAssignment
	reads int
	// beforeSigned runs inside MarkSigned before the compare
	beforeSigned func(a *models.DocumentAssignment)
	signedWins   int
}

func newFakeAssignments(rows ...*models.DocumentAssignment) *fakeAssignments {
	f := &fakeAssignments{rows: map[uint]*models.DocumentAssignment{}}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func clone(a *models.DocumentAssignment) *models.DocumentAssignment {
	c := *a
	return &c
}

func (f *fakeAssignments) get(id uint) *models.DocumentAssignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.rows[id])
}

func (f *fakeAssignments) GetByID(ctx context.Context, id uint) (*models.DocumentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	a, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return clone(a), nil
}

func (f *fakeAssignments) GetBySignatureRequestID(ctx context.Context, requestID string) (*models.DocumentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	for _, a := range f.rows {
		if a.SignatureRequestID != nil && *a.SignatureRequestID == requestID {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (f *fakeAssignments) MarkSent(ctx context.Context, id uint, requestID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.Status != models.StatusAssigned {
		return false, nil
	}
	a.Status = models.StatusSent
	a.SignatureRequestID = &requestID
	return true, nil
}

func (f *fakeAssignments) AdvanceStep(ctx context.Context, id uint, fromStep int, workingKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.CurrentSignerStep != fromStep || a.Status.IsTerminal() {
		return false, nil
	}
	a.CurrentSignerStep++
	a.WorkingArtifactKey = &workingKey
	return true, nil
}

func (f *fakeAssignments) HandOff(ctx context.Context, id uint, fromStep int, workingKey string, requestID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.CurrentSignerStep != fromStep || a.Status.IsTerminal() {
		return false, nil
	}
	a.CurrentSignerStep++
	a.WorkingArtifactKey = &workingKey
	a.SignatureRequestID = requestID
	return true, nil
}

func (f *fakeAssignments) MarkSigned(ctx context.Context, id uint, artifactKey string, externalFileID *string) (*models.DocumentAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if f.beforeSigned != nil {
		f.beforeSigned(a)
	}
	if a.Status.IsTerminal() {
		return nil, nil
	}
	now := time.Now()
	a.Status = models.StatusSigned
	a.SignedArtifactKey = &artifactKey
	a.ExternalFileID = externalFileID
	a.SignedAt = &now
	f.signedWins++
	return clone(a), nil
}

func (f *fakeAssignments) MarkClosed(ctx context.Context, id uint, status models.AssignmentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.Status.IsTerminal() {
		return false, nil
	}
	a.Status = status
	return true, nil
}

type fakeTemplates map[uint]*models.DocumentTemplate

func (f fakeTemplates) GetByID(ctx context.Context, id uint) (*models.DocumentTemplate, error) {
	return f[id], nil
}

type fakeSigners struct {
	mu     sync.Mutex
	signed []int
}

func (f *fakeSigners) MarkSigned(ctx context.Context, assignmentID uint, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signed = append(f.signed, order)
	return nil
}

type fakeTasks struct {
	mu        sync.Mutex
	completed []uint
}

func (f *fakeTasks) CompleteForAssignment(ctx context.Context, assignmentID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, assignmentID)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Create(ctx context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *log)
	return nil
}

func (f *fakeAudit) last() models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

func (f *fakeAudit) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Outcome)
	}
	return out
}

type fakeReceipts struct {
	mu     sync.Mutex
	counts map[string]int
}

func (f *fakeReceipts) Record(ctx context.Context, bodySHA256, event string, requestID *string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[bodySHA256]++
	return f.counts[bodySHA256], nil
}

type fakeReconciliations struct {
	mu   sync.Mutex
	rows []models.ArtifactReconciliation
}

func (f *fakeReconciliations) Create(ctx context.Context, rec *models.ArtifactReconciliation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *rec)
	return nil
}

type fakeEvidence struct {
	mu   sync.Mutex
	rows []models.SignatureEvidence
}

func (f *fakeEvidence) Create(ctx context.Context, ev *models.SignatureEvidence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *ev)
	return nil
}

type fakeSealer struct{}

func (fakeSealer) SealEvidence(ctx context.Context, ev vault.Evidence) (string, error) {
	return fmt.Sprintf("sealed:%d:%d:%d", ev.AssignmentID, ev.SignerOrder, ev.SignerID), nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    []string
	puts    []string
}

func (f *fakeStorage) Put(ctx context.Context, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return body, nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://storage.example.com/" + key + "?signed", nil
}

func (f *fakeStorage) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type fakeCRM struct {
	mu        sync.Mutex
	attaches  int
	comments  []string
	attachErr error
}

func (f *fakeCRM) AttachDocument(ctx context.Context, recordID int64, fileName string, content []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return "", f.attachErr
	}
	f.attaches++
	return fmt.Sprintf("file-%d", f.attaches), nil
}

func (f *fakeCRM) AddTimelineComment(ctx context.Context, recordID int64, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, comment)
	return nil
}

type fakeProvider struct {
	mu        sync.Mutex
	created   []opensign.CreateDocumentRequest
	downloads int
	cancels   []string
	nextID    string
}

func (f *fakeProvider) CreateDocument(ctx context.Context, req opensign.CreateDocumentRequest) (*opensign.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &opensign.Session{ID: f.nextID, SignURL: "https://sign.example.com/" + f.nextID}, nil
}

func (f *fakeProvider) DownloadSigned(ctx context.Context, requestID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	return []byte("%PDF-provider-signed-" + requestID), nil
}

func (f *fakeProvider) Cancel(ctx context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, requestID)
	return nil
}

// fakeRenderer appends a marker per stamp so tests can follow the document chain
type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) PageSizes(document []byte) ([]types.Dim, error) {
	return []types.Dim{{Width: 600, Height: 800}, {Width: 600, Height: 800}}, nil
}

func (f *fakeRenderer) Stamp(ctx context.Context, document, signaturePNG []byte, placements []pdf.PercentField, signedAt time.Time) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append(bytes.Clone(document), []byte("|stamped")...), nil
}

type sentEmail struct {
	kind string
	to   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (f *fakeNotifier) SendAssignmentCreated(ctx context.Context, to, name, documentTitle string, assignmentID uint, dueDate *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "created", to: to})
	return nil
}

func (f *fakeNotifier) SendSigningConfirmation(ctx context.Context, to, name, documentTitle, downloadURL string, signedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "confirmation", to: to})
	return nil
}

type fakeDirectory map[int64]*workflow.Person

func (f fakeDirectory) FindPerson(ctx context.Context, id int64) (*workflow.Person, error) {
	return f[id], nil
}

func strPtr(s string) *string { return &s }

// signBody produces the provider's X-Signature value for body
func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// harness wires an engine to fresh fakes
type harness struct {
	engine          *Engine
	assignments     *fakeAssignments
	signers         *fakeSigners
	tasks           *fakeTasks
	audit           *fakeAudit
	receipts        *fakeReceipts
	reconciliations *fakeReconciliations
	evidence        *fakeEvidence
	storage         *fakeStorage
	crm             *fakeCRM
	provider        *fakeProvider
	renderer        *fakeRenderer
	notifier        *fakeNotifier
}

const testSecret = "webhook-secret"

var testNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newHarness(rows ...*models.DocumentAssignment) *harness {
	h := &harness{
		assignments:     newFakeAssignments(rows...),
		signers:         &fakeSigners{},
		tasks:           &fakeTasks{},
		audit:           &fakeAudit{},
		receipts:        &fakeReceipts{counts: map[string]int{}},
		reconciliations: &fakeReconciliations{},
		evidence:        &fakeEvidence{},
		storage:         &fakeStorage{objects: map[string][]byte{"templates/nda.pdf": []byte("%PDF-source")}},
		crm:             &fakeCRM{},
		provider:        &fakeProvider{nextID: "req-1"},
		renderer:        &fakeRenderer{},
		notifier:        &fakeNotifier{},
	}

	templates := fakeTemplates{
		1: {
			ID:             1,
			Title:          "NDA",
			SourceKey:      "templates/nda.pdf",
			FieldPositions: []pdf.PercentField{{Page: 1, X: 10, Y: 80, Width: 30, Height: 5}},
		},
	}
	directory := fakeDirectory{
		100: {ID: 100, DisplayName: "Anna Employee", Email: strPtr("anna@example.com")},
		200: {ID: 200, DisplayName: "Max Manager", Email: strPtr("max@example.com")},
		300: {ID: 300, DisplayName: "No Mail"},
	}

	h.engine = NewEngine(Deps{
		Assignments:     h.assignments,
		Templates:       templates,
		Signers:         h.signers,
		Tasks:           h.tasks,
		Audit:           h.audit,
		Receipts:        h.receipts,
		Reconciliations: h.reconciliations,
		Evidence:        h.evidence,
		Sealer:          fakeSealer{},
		Storage:         h.storage,
		CRM:             h.crm,
		Provider:        h.provider,
		Renderer:        h.renderer,
		Notifier:        h.notifier,
		Directory:       directory,
	}, testSecret)
	h.engine.now = func() time.Time { return testNow }
	return h
}

func (h *harness) reconciliationStages() []string {
	h.reconciliations.mu.Lock()
	defer h.reconciliations.mu.Unlock()
	var stages []string
	for _, r := range h.reconciliations.rows {
		stages = append(stages, r.Stage)
	}
	sort.Strings(stages)
	return stages
}

func sentAssignment(id uint, recipient int64, requestID string, signers ...workflow.ResolvedSigner) *models.DocumentAssignment {
	return &models.DocumentAssignment{
		ID:                 id,
		TemplateID:         1,
		EmployeeID:         recipient,
		CreatedBy:          900,
		Status:             models.StatusSent,
		Priority:           models.PriorityMedium,
		SigningWorkflow:    workflow.Snapshot(signers),
		CurrentSignerStep:  1,
		SignatureRequestID: strPtr(requestID),
	}
}
