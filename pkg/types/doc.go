// Package types defines shared types used across the Portainer client
// packages, keeping identifier and wire-payload declarations free of
// dependencies on the packages that consume them.
package types
