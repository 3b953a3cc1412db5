package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type fakeDirectory struct {
	mu      sync.Mutex
	people  map[int64]*Person
	lookups int
	fail    error
}

func (d *fakeDirectory) FindPerson(ctx context.Context, id int64) (*Person, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if d.fail != nil {
		return nil, d.fail
	}
	if p, ok := d.people[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func newDirectory() *fakeDirectory {
	return &fakeDirectory{people: map[int64]*Person{
		100: {ID: 100, DisplayName: "Erin Employee", Email: strPtr("erin@example.com"), ManagerID: int64Ptr(200)},
		101: {ID: 101, DisplayName: "Noah Nomanager", Email: strPtr("noah@example.com")},
		102: {ID: 102, DisplayName: "Ada Admin-Managed", ManagerID: int64Ptr(300)},
		200: {ID: 200, DisplayName: "Mia Manager", Email: strPtr("mia@example.com")},
		300: {ID: 300, DisplayName: "Hank HR", Email: strPtr("hank@example.com")},
		400: {ID: 400, DisplayName: "Paula Payroll", Email: strPtr("paula@example.com")},
	}}
}

func TestResolveSingleSigner(t *testing.T) {
	dir := newDirectory()
	r := NewResolver(dir, 4, 2)

	for _, cfg := range []*DefaultSignerConfig{nil, {Mode: ModeSingleSigner}} {
		outcomes, err := r.Resolve(context.Background(), cfg, []int64{100, 101, 999}, 300)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(outcomes) != 3 {
			t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
		}
		for i, o := range outcomes {
			if o.Err != nil {
				t.Errorf("Outcome %d: unexpected error %v", i, o.Err)
			}
			if o.Assignment == nil || len(o.Assignment.Signers) != 0 {
				t.Errorf("Outcome %d: expected empty signer list", i)
			}
		}
	}

	if dir.lookups != 0 {
		t.Errorf("Expected no directory lookups, got %d", dir.lookups)
	}
}

func TestResolveDistinctSigners(t *testing.T) {
	r := NewResolver(newDirectory(), 4, 4)
	cfg := &DefaultSignerConfig{
		Mode: ModeMultiSigner,
		Signers: []TemplateSignerConfig{
			{Order: 5, SignerType: SignerSpecificPerson, RoleName: "Payroll", ExplicitIdentifier: int64Ptr(400)},
			{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
			{Order: 3, SignerType: SignerAssigneesManager, RoleName: "Manager"},
		},
	}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{100}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	signers := outcomes[0].Assignment.Signers
	want := []struct {
		id   int64
		role string
	}{{100, "Employee"}, {200, "Manager"}, {400, "Payroll"}}

	if len(signers) != len(want) {
		t.Fatalf("Expected %d signers, got %d", len(want), len(signers))
	}
	for i, w := range want {
		if signers[i].Order != i+1 {
			t.Errorf("Signer %d: expected order %d, got %d", i, i+1, signers[i].Order)
		}
		if signers[i].Identifier != w.id || signers[i].RoleName != w.role {
			t.Errorf("Signer %d: expected %d/%s, got %d/%s", i, w.id, w.role, signers[i].Identifier, signers[i].RoleName)
		}
	}
	if signers[1].DisplayName != "Mia Manager" || signers[1].Email == nil || *signers[1].Email != "mia@example.com" {
		t.Errorf("Manager details not materialized: %+v", signers[1])
	}
}

func TestResolveDedupKeepsFirstRole(t *testing.T) {
	// Recipient 102 is managed by the creating admin
	r := NewResolver(newDirectory(), 4, 1)
	cfg := &DefaultSignerConfig{
		Mode: ModeMultiSigner,
		Signers: []TemplateSignerConfig{
			{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
			{Order: 2, SignerType: SignerCreatingAdmin, RoleName: "HR"},
			{Order: 3, SignerType: SignerAssigneesManager, RoleName: "Manager"},
		},
	}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{102}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	signers := outcomes[0].Assignment.Signers
	if len(signers) != 2 {
		t.Fatalf("Expected 2 signers after dedup, got %d", len(signers))
	}
	if signers[0].RoleName != "Employee" || signers[0].Order != 1 {
		t.Errorf("Expected Employee at order 1, got %+v", signers[0])
	}
	if signers[1].RoleName != "HR" || signers[1].Order != 2 || signers[1].Identifier != 300 {
		t.Errorf("Expected HR (300) at order 2, got %+v", signers[1])
	}
}

func TestResolveDedupManagerBeforeAdmin(t *testing.T) {
	// the manager entry comes first, so the admin entry for the same person is dropped
	r := NewResolver(newDirectory(), 4, 1)
	cfg := &DefaultSignerConfig{
		Mode: ModeMultiSigner,
		Signers: []TemplateSignerConfig{
			{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
			{Order: 2, SignerType: SignerAssigneesManager, RoleName: "Manager"},
			{Order: 3, SignerType: SignerCreatingAdmin, RoleName: "HR"},
		},
	}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{102}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	signers := outcomes[0].Assignment.Signers
	if len(signers) != 2 {
		t.Fatalf("Expected 2 signers after dedup, got %d", len(signers))
	}
	if signers[0].RoleName != "Employee" || signers[0].Identifier != 102 {
		t.Errorf("Expected Employee (102) at order 1, got %+v", signers[0])
	}
	if signers[1].RoleName != "Manager" || signers[1].Order != 2 || signers[1].Identifier != 300 {
		t.Errorf("Expected Manager (300) at order 2, got %+v", signers[1])
	}
}

func TestResolveEqualOrdersKeepDeclarationOrder(t *testing.T) {
	r := NewResolver(newDirectory(), 4, 1)
	cfg := &DefaultSignerConfig{
		Mode: ModeMultiSigner,
		Signers: []TemplateSignerConfig{
			{Order: 2, SignerType: SignerSpecificPerson, RoleName: "Payroll", ExplicitIdentifier: int64Ptr(400)},
			{Order: 2, SignerType: SignerCreatingAdmin, RoleName: "HR"},
			{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
		},
	}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{100}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	roles := []string{}
	for _, s := range outcomes[0].Assignment.Signers {
		roles = append(roles, s.RoleName)
	}
	if len(roles) != 3 || roles[0] != "Employee" || roles[1] != "Payroll" || roles[2] != "HR" {
		t.Errorf("Unexpected order: %v", roles)
	}
}

func TestResolveMissingManagerIsScopedToRecipient(t *testing.T) {
	r := NewResolver(newDirectory(), 4, 3)
	cfg := &DefaultSignerConfig{
		Mode: ModeMultiSigner,
		Signers: []TemplateSignerConfig{
			{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
			{Order: 2, SignerType: SignerAssigneesManager, RoleName: "Manager"},
		},
	}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{100, 101, 999}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if outcomes[0].Err != nil || len(outcomes[0].Assignment.Signers) != 2 {
		t.Errorf("Recipient 100 should resolve, got %+v", outcomes[0])
	}

	var resErr *ResolutionError
	if !errors.As(outcomes[1].Err, &resErr) {
		t.Fatalf("Expected ResolutionError for recipient 101, got %v", outcomes[1].Err)
	}
	if resErr.RecipientID != 101 || resErr.Reason != "no manager on file" {
		t.Errorf("Unexpected resolution error: %+v", resErr)
	}

	if !errors.As(outcomes[2].Err, &resErr) || resErr.RecipientID != 999 {
		t.Errorf("Expected ResolutionError for unknown recipient 999, got %v", outcomes[2].Err)
	}
}

func TestResolveConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *DefaultSignerConfig
	}{
		{
			name: "empty multi signer list",
			cfg:  &DefaultSignerConfig{Mode: ModeMultiSigner},
		},
		{
			name: "specific person without identifier",
			cfg: &DefaultSignerConfig{Mode: ModeMultiSigner, Signers: []TemplateSignerConfig{
				{Order: 1, SignerType: SignerSpecificPerson, RoleName: "Witness"},
			}},
		},
		{
			name: "too many signers",
			cfg: &DefaultSignerConfig{Mode: ModeMultiSigner, Signers: []TemplateSignerConfig{
				{Order: 1, SignerType: SignerAssignee},
				{Order: 2, SignerType: SignerCreatingAdmin},
				{Order: 3, SignerType: SignerAssigneesManager},
				{Order: 4, SignerType: SignerSpecificPerson, ExplicitIdentifier: int64Ptr(400)},
				{Order: 5, SignerType: SignerSpecificPerson, ExplicitIdentifier: int64Ptr(200)},
			}},
		},
		{
			name: "unknown signer type",
			cfg: &DefaultSignerConfig{Mode: ModeMultiSigner, Signers: []TemplateSignerConfig{
				{Order: 1, SignerType: SignerType("notary")},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newDirectory()
			r := NewResolver(dir, 4, 1)
			_, err := r.Resolve(context.Background(), tt.cfg, []int64{100}, 300)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %v", err)
			}
			if dir.lookups != 0 {
				t.Errorf("Expected no lookups, got %d", dir.lookups)
			}
		})
	}
}

func TestResolveDirectoryFailure(t *testing.T) {
	dir := newDirectory()
	dir.fail = errors.New("connection reset")
	r := NewResolver(dir, 4, 1)
	cfg := &DefaultSignerConfig{Mode: ModeMultiSigner, Signers: []TemplateSignerConfig{
		{Order: 1, SignerType: SignerAssignee, RoleName: "Employee"},
	}}

	outcomes, err := r.Resolve(context.Background(), cfg, []int64{100}, 300)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if outcomes[0].Err == nil || !errors.Is(outcomes[0].Err, dir.fail) {
		t.Errorf("Expected wrapped directory error, got %v", outcomes[0].Err)
	}
}

func TestSignerConfigUnmarshal(t *testing.T) {
	raw := `{"mode":"multi_signer","signers":[{"order":1,"signerType":"specific_person","roleName":"HR","bitrixId":42}]}`
	var cfg DefaultSignerConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.Signers[0].ExplicitIdentifier == nil || *cfg.Signers[0].ExplicitIdentifier != 42 {
		t.Errorf("Expected explicit identifier 42, got %v", cfg.Signers[0].ExplicitIdentifier)
	}

	bad := []string{
		`{"mode":"multi_signer","signers":[{"order":1,"signerType":"notary"}]}`,
		`{"mode":"parallel","signers":[]}`,
	}
	for _, b := range bad {
		var c DefaultSignerConfig
		err := json.Unmarshal([]byte(b), &c)
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Expected ConfigurationError for %s, got %v", b, err)
		}
	}
}

func TestSnapshotScanAndAt(t *testing.T) {
	var s Snapshot
	raw := []byte(`[{"order":1,"bitrixId":100,"employeeName":"Erin","roleName":"Employee"},{"order":2,"bitrixId":300,"employeeName":"Hank","roleName":"HR"}]`)
	if err := s.Scan(raw); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	signer, ok := s.At(2)
	if !ok || signer.Identifier != 300 {
		t.Errorf("Expected signer 300 at step 2, got %+v", signer)
	}
	if _, ok := s.At(3); ok {
		t.Error("Expected no signer at step 3")
	}

	v, err := Snapshot(nil).Value()
	if err != nil || string(v.([]byte)) != "[]" {
		t.Errorf("Expected nil snapshot to store as [], got %v (%v)", v, err)
	}
}
