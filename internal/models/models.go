package models

import (
	"strings"
	"time"
)

// Process is a manufacturing step selectable by the operator.
type Process struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Descript string `json:"descript"`
	Sort     int    `json:"sort"`
	Remark   string `json:"remark,omitempty"`
}

// RequiresProductSelection reports whether this process takes a batch and
// product selection. The backend encodes the rule in the display name: a
// process whose name contains one of the configured markers is the kind that
// is tied to a concrete product.
func (p Process) RequiresProductSelection(markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(p.Name, m) {
			return true
		}
	}
	return false
}

// Device is a shop-floor device (printer, PDA) registered with the backend.
type Device struct {
	ID                      int64  `json:"id"`
	Name                    string `json:"name"`
	Code                    string `json:"code"`
	Type                    int    `json:"type"`
	Status                  int    `json:"status"`
	ProductionProcessesID   int64  `json:"productionProcessesId,omitempty"`
	ProductionProcessesName string `json:"productionProcessesName,omitempty"`
	QrcodeNum               int    `json:"qrcodeNum,omitempty"`
	Sort                    int    `json:"sort,omitempty"`
	Remark                  string `json:"remark,omitempty"`
}

// Device status values as reported by the backend.
const (
	DeviceStatusMaintenance = 0
	DeviceStatusNormal      = 1
)

// Device types. The selection flow only lists PDA devices.
const (
	DeviceTypePrinter = 1
	DeviceTypePDA     = 2
)

// Product is one manufactured item variant. It is owned by exactly one Batch.
type Product struct {
	ID           int64  `json:"id"`
	Size         string `json:"size"`
	Colour       string `json:"colour"`
	ThumbCode    string `json:"thumbCode"`
	BatchCode    string `json:"batchCode"`
	Trademark    string `json:"trademark"`
	ProductThumb string `json:"productThumb"`
	Remark       string `json:"remark,omitempty"`
	OperateID    int64  `json:"operateId,omitempty"`
	OperateName  string `json:"operateName,omitempty"`
}

// Batch is a size/lot grouping owning a set of products. The backend ships
// batches as {size, products} aggregates; the size doubles as the batch id.
type Batch struct {
	Size     string    `json:"size"`
	Products []Product `json:"products"`
}

// ID returns the batch identifier (the size code).
func (b Batch) ID() string { return b.Size }

// Session is the persisted login state.
type Session struct {
	LoggedIn  bool      `json:"loggedIn"`
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token,omitempty"`
	LoginTime time.Time `json:"loginTime"`
}

// UserInfo is the raw identity blob returned by the login endpoint.
type UserInfo struct {
	ID       int64  `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

// SelectionState is the in-progress form: ids only, persisted so a reload
// mid-flow restores the operator's place before reference data arrives.
type SelectionState struct {
	ProcessID string `json:"process"`
	DeviceID  string `json:"device"`
	BatchID   string `json:"batch"`
	ProductID string `json:"product"`
}

// IsZero reports whether nothing has been selected yet.
func (s SelectionState) IsZero() bool {
	return s.ProcessID == "" && s.DeviceID == "" && s.BatchID == "" && s.ProductID == ""
}

// CommittedSelection is the validated tuple the scan flow submits against.
// Unlike SelectionState it carries the resolved objects, not ids.
type CommittedSelection struct {
	Process   *Process  `json:"process"`
	Device    *Device   `json:"device,omitempty"`
	Batch     *Batch    `json:"batch,omitempty"`
	Product   *Product  `json:"product,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanMethod tells how a code entered the system.
type ScanMethod string

const (
	MethodManual ScanMethod = "manual"
	MethodScan   ScanMethod = "scan"
	MethodDetail ScanMethod = "detail"
)

// ScanHistoryEntry is one successful submission, newest first in storage.
type ScanHistoryEntry struct {
	ID        int64      `json:"id"` // unix millis at insertion
	Code      string     `json:"code"`
	Method    ScanMethod `json:"method"`
	Timestamp string     `json:"timestamp"`
}

// DisplayFieldConfig drives the public detail page: only entries with
// IsShow == 1 render, in the order the backend returns them.
type DisplayFieldConfig struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	IsShow int    `json:"isShow"`
	Sort   int    `json:"sort,omitempty"`
}

// Visible reports whether the field should be rendered.
func (c DisplayFieldConfig) Visible() bool { return c.IsShow == 1 }

// ProduceUser is one production record attached to a detail payload.
type ProduceUser struct {
	ID                      int64  `json:"id"`
	OperateID               int64  `json:"operateId"`
	OperateName             string `json:"operateName"`
	ProductionProcessesID   int64  `json:"productionProcessesId"`
	ProductionProcessesName string `json:"productionProcessesName"`
	CreateTime              string `json:"createTime"`
	Remark                  string `json:"remark,omitempty"`
}

// ProduceDetail is the payload behind the public product-detail page.
type ProduceDetail struct {
	QrcodeID         int64         `json:"qrcodeId,omitempty"`
	BatchCode        string        `json:"batchCode"`
	Size             string        `json:"size"`
	ThumbCode        string        `json:"thumbCode"`
	Trademark        string        `json:"trademark"`
	ProductThumb     string        `json:"productThumb"`
	ShareProductTime string        `json:"shareProductTime"`
	Remark           string        `json:"remark,omitempty"`
	ProduceUserList  []ProduceUser `json:"produceUserList,omitempty"`
}

// QrcodeInfo is the payload of the code-resolution endpoint. URL, when set,
// tells the landing page where to send the visitor.
type QrcodeInfo struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	BatchCode   string `json:"batchCode"`
	DeviceID    int64  `json:"deviceId"`
	Num         int    `json:"num"`
	OperateID   int64  `json:"operateId"`
	OperateName string `json:"operateName"`
	Status      int    `json:"status"`
	URL         string `json:"url"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
	Remark      string `json:"remark,omitempty"`
}

// TakeRequest is the scan submission body.
type TakeRequest struct {
	DeviceID              int64 `json:"deviceId"`
	ProductID             int64 `json:"productId"`
	ProductionProcessesID int64 `json:"productionProcessesId"`
	QrcodeID              int64 `json:"qrcodeId"`
}
