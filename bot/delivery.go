package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/rsimage/image"
	"github.com/BaSui01/rsimage/types"
)

// 投递方式
const (
	DeliveryBytes   = "bytes"
	DeliveryURL     = "url"
	DeliveryRefetch = "refetch"
)

const photoFilename = "image.png"

// deliver 按 内联字节 → URL → 重新下载后上传 的顺序投递图片，返回成功的方式
func (h *Handler) deliver(ctx context.Context, chatID int64, result *image.ImageResult) (string, error) {
	caption := fmt.Sprintf(captionFormat, h.label)

	if result == nil || !result.HasImage() {
		return "", types.NewError(types.ErrDeliveryFailed, "no image was received from the image service")
	}

	if len(result.Data) > 0 {
		err := h.messenger.SendPhoto(ctx, chatID, Photo{Bytes: result.Data, Filename: photoFilename, Caption: caption})
		h.recorder.RecordDelivery(DeliveryBytes, err == nil)
		if err == nil {
			return DeliveryBytes, nil
		}
		if result.URL == "" {
			return "", types.NewError(types.ErrDeliveryFailed, "failed to send the image").WithCause(err)
		}
		h.logger.Warn("send by bytes failed, trying url", zap.Error(err))
	}

	clean, err := image.CleanURL(result.URL)
	if err != nil {
		return "", types.NewError(types.ErrDeliveryFailed, fmt.Sprintf("bad image URL: %q", result.URL)).WithCause(err)
	}

	err = h.messenger.SendPhoto(ctx, chatID, Photo{URL: clean, Caption: caption})
	h.recorder.RecordDelivery(DeliveryURL, err == nil)
	if err == nil {
		return DeliveryURL, nil
	}
	h.logger.Warn("send by url failed, will download and upload", zap.String("url", clean), zap.Error(err))

	if h.fetcher == nil {
		return "", types.NewError(types.ErrDeliveryFailed, "failed to send the image").WithCause(err)
	}
	data, err := h.fetcher.Fetch(ctx, clean)
	if err != nil {
		h.recorder.RecordDelivery(DeliveryRefetch, false)
		return "", types.NewError(types.ErrDeliveryFailed, "failed to fetch image from URL").WithCause(err)
	}
	err = h.messenger.SendPhoto(ctx, chatID, Photo{Bytes: data, Filename: photoFilename, Caption: caption})
	h.recorder.RecordDelivery(DeliveryRefetch, err == nil)
	if err != nil {
		return "", types.NewError(types.ErrDeliveryFailed, "failed to send the image").WithCause(err)
	}
	return DeliveryRefetch, nil
}
