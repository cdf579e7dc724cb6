package api

import (
	"context"
	"net/url"
	"strconv"

	"scanflow/internal/models"
)

// Login authenticates and returns the identity blob.
func (c *Client) Login(ctx context.Context, username, password string) (models.UserInfo, error) {
	var info models.UserInfo
	env, err := c.postForm(ctx, "/login", url.Values{
		"userName": {username},
		"passWord": {password},
	})
	if err != nil {
		return info, err
	}
	if err := env.decode(&info); err != nil {
		return info, err
	}
	return info, nil
}

// ProcessPageList fetches the process reference list. pageSize 999 means
// "everything" to the backend.
func (c *Client) ProcessPageList(ctx context.Context, currPage, pageSize int) ([]models.Process, error) {
	env, err := c.get(ctx, "/daciProductionProcesses/pageList", url.Values{
		"currPage": {strconv.Itoa(currPage)},
		"pageSize": {strconv.Itoa(pageSize)},
	})
	if err != nil {
		return nil, err
	}
	var page models.PageData[models.Process]
	if err := env.decode(&page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// DevicePageList fetches devices filtered by type (2 = PDA).
func (c *Client) DevicePageList(ctx context.Context, currPage, pageSize, deviceType int) ([]models.Device, error) {
	env, err := c.get(ctx, "/daciDevice/pageList", url.Values{
		"currPage": {strconv.Itoa(currPage)},
		"pageSize": {strconv.Itoa(pageSize)},
		"type":     {strconv.Itoa(deviceType)},
	})
	if err != nil {
		return nil, err
	}
	var page models.PageData[models.Device]
	if err := env.decode(&page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// ProductSizeList fetches the batch/product aggregate. Unlike the paged
// endpoints the data is a bare array of {size, products}.
func (c *Client) ProductSizeList(ctx context.Context) ([]models.Batch, error) {
	env, err := c.get(ctx, "/daciProduct/getProductSizeList", nil)
	if err != nil {
		return nil, err
	}
	var batches []models.Batch
	if err := env.decode(&batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// Take submits one scanned unit against the committed selection.
func (c *Client) Take(ctx context.Context, req models.TakeRequest) error {
	_, err := c.postJSON(ctx, "/daciProduce/take", req)
	return err
}

// ProduceByQrcode fetches the public detail record for a code identifier.
func (c *Client) ProduceByQrcode(ctx context.Context, qrcodeID int64) (models.ProduceDetail, error) {
	var detail models.ProduceDetail
	env, err := c.get(ctx, "/daciProduce/getByQrCode", url.Values{
		"qrcodeId": {strconv.FormatInt(qrcodeID, 10)},
	})
	if err != nil {
		return detail, err
	}
	if err := env.decode(&detail); err != nil {
		return detail, err
	}
	return detail, nil
}

// ShowConfigList fetches the display-field configuration.
func (c *Client) ShowConfigList(ctx context.Context) ([]models.DisplayFieldConfig, error) {
	env, err := c.get(ctx, "/daciProduceShow/pageList", nil)
	if err != nil {
		return nil, err
	}
	var page models.PageData[models.DisplayFieldConfig]
	if err := env.decode(&page); err != nil {
		return nil, err
	}
	return page.Records, nil
}

// QrcodeInfo resolves a code identifier to its landing record.
func (c *Client) QrcodeInfo(ctx context.Context, infoID int64) (models.QrcodeInfo, error) {
	var info models.QrcodeInfo
	env, err := c.get(ctx, "/daciQrcode/getInfo", url.Values{
		"infoId": {strconv.FormatInt(infoID, 10)},
	})
	if err != nil {
		return info, err
	}
	if err := env.decode(&info); err != nil {
		return info, err
	}
	return info, nil
}
