// Package status exposes the alarm snapshot of a running engine over gRPC.
//
// The service has a single unary method, alarms.v1.StatusService/GetStatus,
// taking google.protobuf.Empty and answering with a google.protobuf.Struct,
// so it needs no generated code on either side.
package status
