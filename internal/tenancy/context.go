package tenancy

import "context"

type ctxKey string

const clinicKey ctxKey = "booking.clinic_id"

// WithClinicID stores the clinic id in context.
func WithClinicID(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(clinicKey)
	if val == nil {
		return "", false
	}
	clinicID, ok := val.(string)
	return clinicID, ok && clinicID != ""
}
