// Package download handles .adh download descriptors.
//
// A descriptor is a single line of key=value pairs joined by '&'. It names
// the catalog product and the container flavour on offer. ParseDescriptor
// reads it, Extension decides whether the offered container is one aaxsplit
// can convert, and HTTPDownloader fetches the container by echoing the
// descriptor back to the download endpoint as a query string.
package download
