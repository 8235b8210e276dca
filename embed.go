package inkwell

import "embed"

// EmbeddedAssets contains static assets shipped with inkwell:
// inkwell.css and inkwell.js
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
