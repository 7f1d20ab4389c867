package possecure

import "context"

type workstationContextKey struct{}
type clientIPContextKey struct{}

// WithWorkstation attaches the terminal identifier to ctx. The Engine
// stamps it onto every audit event emitted for operations carrying this
// context.
func WithWorkstation(ctx context.Context, workstation string) context.Context {
	return context.WithValue(ctx, workstationContextKey{}, workstation)
}

// WithClientIP attaches the caller's IP address to ctx for audit
// logging. Local terminals normally leave it unset.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func workstationFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	workstation, _ := ctx.Value(workstationContextKey{}).(string)
	return workstation
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
