package ca

import "context"

// Notifier observes certificate issuance.
//
// BeforeIssuance fires exactly once per attempt that passes the expiry and
// identity checks, even when a later step fails; AfterIssuance fires
// exactly once per successful issuance and never on failure. Return values
// are not consumed; notifications cannot veto issuance.
type Notifier interface {
	BeforeIssuance(ctx context.Context, req *IssueRequest)
	AfterIssuance(ctx context.Context, req *IssueRequest, cert *Certificate)
}

// NotifierFunc adapts plain functions to the Notifier interface.
type NotifierFunc struct {
	Before func(ctx context.Context, req *IssueRequest)
	After  func(ctx context.Context, req *IssueRequest, cert *Certificate)
}

func (n NotifierFunc) BeforeIssuance(ctx context.Context, req *IssueRequest) {
	if n.Before != nil {
		n.Before(ctx, req)
	}
}

func (n NotifierFunc) AfterIssuance(ctx context.Context, req *IssueRequest, cert *Certificate) {
	if n.After != nil {
		n.After(ctx, req, cert)
	}
}
