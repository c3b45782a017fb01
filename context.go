package goAlert

import (
	"context"

	"github.com/MrEthical07/goAlert/internal/device"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type deviceInfoContextKey struct{}
type userIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is copied into
// the DeviceInfo of every audit entry written for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. When no
// DeviceInfo is attached, platform and browser are derived from it.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceInfo attaches a fully parsed DeviceInfo to ctx, typically built
// by the HTTP layer from request headers.
func WithDeviceInfo(ctx context.Context, info DeviceInfo) context.Context {
	return context.WithValue(ctx, deviceInfoContextKey{}, info)
}

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, _ := ctx.Value(userIDContextKey{}).(string)
	return id, id != ""
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func deviceFromContext(ctx context.Context) DeviceInfo {
	if ctx == nil {
		return DeviceInfo{}
	}
	if info, ok := ctx.Value(deviceInfoContextKey{}).(DeviceInfo); ok {
		if info.IP == "" {
			info.IP = clientIPFromContext(ctx)
		}
		return info
	}

	info := device.Parse(userAgentFromContext(ctx))
	info.IP = clientIPFromContext(ctx)
	return info
}
