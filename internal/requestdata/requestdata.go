package requestdata

import (
	"context"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// Authenticated reports whether the context carries a verified identity.
func Authenticated(ctx context.Context) bool {
	rd := GetRequestData(ctx)
	return rd != nil && rd.Username != ""
}

type RequestData struct {
	TokenString string
	Username    string
}
