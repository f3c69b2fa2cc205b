// Package catalog defines the product catalog domain types shared by the
// synchronizer, the durable store, and the remote source client.
package catalog
