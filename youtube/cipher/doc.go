// Package cipher reverses the stream URL transformations applied by
// upstream player.js builds.
//
// Two independent transformations exist:
//
//   - the signature scramble ("s" in a signatureCipher blob), undone by
//     Descrambler.Decipher;
//   - the n-parameter throttle token, undone by Descrambler.TransformN.
//
// The signature chain is parsed with regular expressions first (reverse,
// splice, swap sequences), so the common case never executes upstream code.
// When parsing fails, the script runs inside a single-use VM that exposes no
// host functionality beyond a stubbed console. player.js bodies are cached
// per URL for a short TTL since every format of a video, and usually many
// consecutive requests, share one build.
package cipher
