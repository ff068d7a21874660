// Package audit records who changed what on which device.
//
// Every ownership change, deployment, routing change, and discovery scan is
// written to the audit_logs table with its source ("mcp" or "api").
package audit
