package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MediaProbe 课件视频的探测结果
type MediaProbe struct {
	Duration float64 `json:"duration"` // 秒
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
}

// ProbeMedia 用 ffprobe 读取视频元数据,非视频文件返回错误
func ProbeMedia(path string) (*MediaProbe, error) {
	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, fmt.Errorf("探测媒体文件失败: %w", err)
	}

	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("解析媒体元数据失败: %w", err)
	}

	probe := &MediaProbe{}
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			probe.Width = stream.Width
			probe.Height = stream.Height
			break
		}
	}

	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		probe.Duration = d
	}
	if parts := strings.Split(result.Format.Format, ","); len(parts) > 0 && parts[0] != "" {
		probe.Format = parts[0]
	}
	return probe, nil
}

// IsVideoContentType 判断上传文件是否按视频处理
func IsVideoContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "video/")
}
