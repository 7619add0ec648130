// Package flowpb holds the wire contract for the master/worker/client gRPC
// surface, in the structural shape protoc-gen-go and protoc-gen-go-grpc
// emit. The teacher references an equivalent generated api/proto package
// that was not present in the retrieved snapshot; this package is the
// concrete fill-in, grounded on that same client/server/ServiceDesc shape.
//
// It trades one thing for practicality: message types here are plain Go
// structs rather than real google.golang.org/protobuf-generated types,
// since reproducing protoc's binary wire format and descriptor machinery
// by hand is not something a hand-maintained file can do correctly. A
// JSON grpc.Codec (codec.go) fills that gap so the rest of the stack --
// ServiceDesc, ClientConnInterface, UnaryServerInterceptor -- is the real
// google.golang.org/grpc surface, unchanged from what protoc-gen-go-grpc
// would produce.
package flowpb
