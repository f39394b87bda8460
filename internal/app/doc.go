// Package app composes the admin backend: it wires the domain services to
// their storage backend and external gateways and manages their lifecycle.
//
//	internal/app/
//	├── application.go   # wiring and lifecycle, campaign scheduler
//	├── domain/          # domain models (pure data structures)
//	├── storage/         # store interfaces, supabase and memory backends
//	├── services/        # business logic, one package per route group
//	├── httpapi/         # gorilla/mux handlers under /api/admin/v1
//	└── metrics/         # Prometheus collectors
//
// Business rules live in internal/app/services; handlers only decode,
// dispatch and encode. Stores never reach back into services.
package app
