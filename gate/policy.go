package gate

import "context"

// Policy adds resource-level rules on top of profile permissions, such as
// refusing edits to a validated order. It returns nil to allow, or the error
// that explains the refusal.
type Policy[U comparable] interface {
	Check(ctx context.Context, user U, action Action, resource any) error
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc[U comparable] func(ctx context.Context, user U, action Action, resource any) error

func (f PolicyFunc[U]) Check(ctx context.Context, user U, action Action, resource any) error {
	return f(ctx, user, action, resource)
}
