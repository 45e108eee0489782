// Package api is the wire contract between dentctl and the document store.
//
// The gRPC service is declared by hand and carried with a JSON codec, so the
// same message types also serve as request and response bodies of the REST
// gateway.
package api
