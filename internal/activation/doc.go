// Package activation discovers the decryption key for a protected audiobook
// container.
//
// A Resolver tries candidate activation bytes one at a time by decoding a
// hundredth of a second of the input with ffmpeg. The implicit "no key"
// candidate always goes first so unencrypted containers never need one. The
// first candidate whose trial exits successfully is returned and reused for
// every chapter job of that file.
package activation
