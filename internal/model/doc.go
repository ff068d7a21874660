// Package model defines the declarative Moku configuration and its validators.
//
// A Config names a platform, a set of instrument slots and a routing
// matrix. Validation happens in two passes:
//
//  1. Schema: Parse and FromMap check field presence and types and fail
//     with a *SchemaError wrapping ErrInvalidConfig.
//  2. Routing: ValidateRouting checks the parsed model structurally
//     (endpoints exist, no self-loops, slot numbers in range) and returns
//     one RoutingError per problem.
//
// Unsupported instrument names and CloudCompile slots without a bitstream
// pass the schema pass. The deploy engine decides what to do with them;
// Strict can be used to reject them up front.
package model
