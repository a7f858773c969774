// Package devices holds the low-level SPI and GPIO contracts the
// mote-side radio driver is built on, and a periph.io-backed
// implementation of them. Everything above this package (tuning,
// registry, calibration, peer, radio) talks to hardware only through
// these two interfaces.
package devices
