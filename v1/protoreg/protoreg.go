// Package protoreg relaxes the protobuf registration conflict policy for
// binaries that link several vector database clients.
//
// The Milvus and Qdrant Go clients both register a generated file under
// the bare path "common.proto". The protobuf runtime panics on such
// duplicates by default, so any binary linking both clients dies during
// package initialization. Importing this package for its side effect sets
// GOLANG_PROTOBUF_REGISTRATION_CONFLICT to "ignore" before the generated
// packages initialize: its import path sorts ahead of both clients and it
// depends on nothing but os. The first registration wins; each client keeps
// using its own descriptors, so only global registry lookups by file path
// are affected.
//
// An explicit GOLANG_PROTOBUF_REGISTRATION_CONFLICT value in the
// environment is left untouched. Release builds may additionally pin the
// policy with
//
//	-ldflags "-X google.golang.org/protobuf/reflect/protoregistry.conflictPolicy=ignore"
package protoreg

import "os"

// ConflictPolicyEnv is the environment variable the protobuf runtime reads
// when two files or descriptors share a name.
const ConflictPolicyEnv = "GOLANG_PROTOBUF_REGISTRATION_CONFLICT"

// DefaultConflictPolicy is applied when the environment sets none.
const DefaultConflictPolicy = "ignore"

func init() {
	if os.Getenv(ConflictPolicyEnv) == "" {
		_ = os.Setenv(ConflictPolicyEnv, DefaultConflictPolicy)
	}
}

// ConflictPolicy returns the policy in effect for this process.
func ConflictPolicy() string {
	return os.Getenv(ConflictPolicyEnv)
}
