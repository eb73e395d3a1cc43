// Package environment holds the in-memory model a provisioning run works
// on: the workspace pods, the machine configuration behind each container,
// and the warnings collected along the way.
package environment
