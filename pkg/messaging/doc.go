// Package messaging resolves messaging backends by key.
//
// A Registry is built once at startup from Descriptors and never changes.
// The set of backends a request may use is every default-enabled backend,
// plus the remaining ones while extra_messaging_backends_enabled is on:
//
//	registry := messaging.MustRegistry(
//		messaging.Descriptor{DefaultEnabled: true, Backend: telegram.New(cfg, codes)},
//		messaging.Descriptor{Backend: msteams.New(cfg, codes)},
//	)
//	backend, err := registry.Resolve(key, flags.ExtraMessagingBackendsEnabled())
//	if errors.Is(err, messaging.ErrBackendNotFound) {
//		// 400
//	}
package messaging
