// Package provider turns saved connection profiles into vectordb adapters
// and fronts the active adapter for provider-agnostic code.
//
// Factory.Create validates a Profile and returns an unconnected
// vectordb.Connection. Manager holds the active connection, exposes
// error-swallowing read facades and write facades that invalidate cached
// collection state, and NormalizeItem reconciles item shapes that differ
// between providers.
package provider
