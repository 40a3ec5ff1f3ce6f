/*
Package media implements one simulated streaming client.

# Workflow

Each session walks the same states:

	init → token-requested → token-failed
	                       → manifest-fetching → manifest-failed
	                                           → segments-downloading → completed

  - token-requested: GET /api/v1/media/start with the session cookie and
    read streamingSessionToken from the JSON body
  - manifest-fetching: GET /api/v1/media/hls/variant for the 480p rendition;
    every line containing "/api" is a segment path
  - segments-downloading: GET each segment and discard the payload

# Counting

Results go to the shared stresstest.Counters:
  - TokenErrors: start failed or had no token; the session stops
  - ManifestErrors: variant request failed; the session stops
  - SegmentsPlayed: one per segment attempt, or one per successful fetch
    with StrictSegments
  - SegmentErrors: failed segment fetches
  - FullPasses: once when all segments were processed

Nothing is retried and no error leaves the workflow.
*/
package media
