// Package nespreso is a client for the NeSPReSO ocean prediction API. It
// retrieves synthetic temperature/salinity depth profiles for lists of
// point coordinates and dates, and gridded fields for bounding boxes, and
// saves the NetCDF responses to disk. Large point requests are split into
// sequential batches whose output files can optionally be merged into a
// single file through an injected Merger (see the netcdf subpackage).
package nespreso
