// Package testsupport builds temp-dir configurations, placeholder images, and
// ledgers for tests across packages.
package testsupport
