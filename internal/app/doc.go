// Package app groups the server-side composition of soundstack.
//
// # Package Structure
//
//   - domain: user and song records
//   - storage: persistence interfaces with memory and postgres backends
//   - services: signup, login and song catalog rules
//   - httpapi: routes, the ingress chain and the terminal error responder
//   - metrics: prometheus collectors
//   - system: ordered start and stop of background services
//   - runtime: builds all of the above from config and runs the server
package app
