package ffmpeg

// MediaInfo contains metadata about a media file. Times are in seconds.
type MediaInfo struct {
	FilePath     string
	Duration     float64
	Width        int
	Height       int
	FPS          float64
	Bitrate      int64
	HasVideo     bool
	VideoCodec   string
	HasAudio     bool
	AudioCodec   string
	AudioBitrate int64
	SampleRate   int
	Channels     int
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Seconds float64
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)
