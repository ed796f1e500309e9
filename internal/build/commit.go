package build

import (
	"fmt"

	"github.com/roach88/shoal/internal/keys"
	"github.com/roach88/shoal/internal/schema"
)

// SigningError reports that the signing capability rejected an operation.
// It aborts the remainder of a run; operations appended before the failure
// stay durable and a retried run plans only what is left.
type SigningError struct {
	Name string // entity name of the operation that failed to sign
	Err  error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("SIGNING_FAILED: operation for %q: %v", e.Name, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// SignCommit turns one planned operation into a signed, persistable commit.
// The signature covers the operation's canonical bytes, the same bytes the
// operation identifier is derived from.
func SignCommit(op PlannedOperation, signer keys.Signer) (schema.Commit, error) {
	canonical, err := schema.EncodeOperation(op.Operation)
	if err != nil {
		return schema.Commit{}, err
	}

	opID, err := schema.OperationID(op.Operation)
	if err != nil {
		return schema.Commit{}, err
	}

	signature, err := signer.Sign(canonical)
	if err != nil {
		return schema.Commit{}, &SigningError{Name: op.Operation.Name, Err: err}
	}

	return schema.Commit{
		ID:        opID,
		EntityID:  op.EntityID,
		Operation: op.Operation,
		PublicKey: signer.PublicKey(),
		Signature: signature,
	}, nil
}
