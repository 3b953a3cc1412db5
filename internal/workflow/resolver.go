package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Person is a directory entry as seen by the resolver
type Person struct {
	ID          int64
	DisplayName string
	Email       *string
	ManagerID   *int64
}

// Directory looks people up by identifier. An unknown id yields nil, nil.
type Directory interface {
	FindPerson(ctx context.Context, id int64) (*Person, error)
}

// Outcome is the resolution result for a single recipient.
// Exactly one of Assignment and Err is set.
type Outcome struct {
	RecipientID int64
	Assignment  *ResolvedAssignment
	Err         error
}

// Resolver turns a DefaultSignerConfig into per-recipient signer lists.
// It performs no writes and keeps no state between calls.
type Resolver struct {
	directory   Directory
	maxSigners  int
	concurrency int
}

// NewResolver creates a resolver. concurrency bounds the number of recipients
// resolved at the same time; values below 1 mean one at a time.
func NewResolver(directory Directory, maxSigners, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{
		directory:   directory,
		maxSigners:  maxSigners,
		concurrency: concurrency,
	}
}

// Resolve expands cfg for every recipient. A ConfigurationError is returned
// before any lookup; otherwise each recipient gets its own Outcome in input order.
func (r *Resolver) Resolve(ctx context.Context, cfg *DefaultSignerConfig, recipientIDs []int64, creatingAdminID int64) ([]Outcome, error) {
	if err := cfg.Validate(r.maxSigners); err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(recipientIDs))

	if cfg == nil || cfg.Mode == ModeSingleSigner {
		for i, id := range recipientIDs {
			outcomes[i] = Outcome{
				RecipientID: id,
				Assignment:  &ResolvedAssignment{RecipientID: id, Signers: []ResolvedSigner{}},
			}
		}
		return outcomes, nil
	}

	declared := sortedByOrder(cfg.Signers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range recipientIDs {
		g.Go(func() error {
			signers, err := r.resolveRecipient(gctx, declared, id, creatingAdminID)
			if err != nil {
				outcomes[i] = Outcome{RecipientID: id, Err: err}
			} else {
				outcomes[i] = Outcome{
					RecipientID: id,
					Assignment:  &ResolvedAssignment{RecipientID: id, Signers: signers},
				}
			}
			// A single recipient failing must not cancel the others
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve workflow: %w", err)
	}

	return outcomes, nil
}

// sortedByOrder returns a stably sorted copy; equal orders keep declaration order
func sortedByOrder(in []TemplateSignerConfig) []TemplateSignerConfig {
	out := make([]TemplateSignerConfig, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

func (r *Resolver) resolveRecipient(ctx context.Context, declared []TemplateSignerConfig, recipientID, creatingAdminID int64) ([]ResolvedSigner, error) {
	seen := newOrderedSet()
	var signers []ResolvedSigner

	for _, slot := range declared {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		signer, err := r.resolveSlot(ctx, slot, recipientID, creatingAdminID)
		if err != nil {
			return nil, err
		}
		if !seen.add(signer.Identifier) {
			continue
		}
		signers = append(signers, signer)
	}

	if len(signers) == 0 {
		return nil, &ResolutionError{RecipientID: recipientID, Reason: "zero signers after dedup"}
	}

	for i := range signers {
		signers[i].Order = i + 1
	}
	return signers, nil
}

func (r *Resolver) resolveSlot(ctx context.Context, slot TemplateSignerConfig, recipientID, creatingAdminID int64) (ResolvedSigner, error) {
	var id int64

	switch slot.SignerType {
	case SignerAssignee:
		id = recipientID
	case SignerCreatingAdmin:
		id = creatingAdminID
	case SignerAssigneesManager:
		recipient, err := r.lookup(ctx, recipientID, recipientID)
		if err != nil {
			return ResolvedSigner{}, err
		}
		if recipient.ManagerID == nil {
			return ResolvedSigner{}, &ResolutionError{RecipientID: recipientID, Reason: "no manager on file"}
		}
		id = *recipient.ManagerID
	case SignerSpecificPerson:
		if slot.ExplicitIdentifier == nil {
			return ResolvedSigner{}, &ConfigurationError{Reason: "specific_person requires an explicit identifier"}
		}
		id = *slot.ExplicitIdentifier
	default:
		return ResolvedSigner{}, &ConfigurationError{Reason: fmt.Sprintf("unknown signer type %q", slot.SignerType)}
	}

	person, err := r.lookup(ctx, id, recipientID)
	if err != nil {
		return ResolvedSigner{}, err
	}

	return ResolvedSigner{
		Identifier:  person.ID,
		DisplayName: person.DisplayName,
		Email:       person.Email,
		RoleName:    slot.RoleName,
	}, nil
}

func (r *Resolver) lookup(ctx context.Context, id, recipientID int64) (*Person, error) {
	person, err := r.directory.FindPerson(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up employee %d: %w", id, err)
	}
	if person == nil {
		return nil, &ResolutionError{RecipientID: recipientID, Reason: fmt.Sprintf("employee %d not found in directory", id)}
	}
	return person, nil
}

// orderedSet remembers identifiers in first-seen order
type orderedSet struct {
	index map[int64]int
	items []int64
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[int64]int)}
}

// add reports whether id was new
func (s *orderedSet) add(id int64) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, id)
	return true
}
