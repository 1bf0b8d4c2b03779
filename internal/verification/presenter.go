package verification

import "context"

// Presenter hands the hosted verification URL to the applicant's channel:
// a web client pushes it over the active connection, a headless caller may
// deliver it by email or SMS. Present returns true when the URL was actually
// surfaced to the user; on false or error the attempt falls back to
// manual_verification so the link can be shared out of band.
type Presenter interface {
	Present(ctx context.Context, registrationID, verificationURL string) (opened bool, err error)
}

// ManualPresenter never surfaces the URL automatically. It is the default
// when no channel is wired, leaving every attempt in manual_verification
// until the status endpoint hands the URL to the client.
type ManualPresenter struct{}

func (ManualPresenter) Present(context.Context, string, string) (bool, error) {
	return false, nil
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, registrationID, verificationURL string) (bool, error)

func (f PresenterFunc) Present(ctx context.Context, registrationID, verificationURL string) (bool, error) {
	return f(ctx, registrationID, verificationURL)
}
