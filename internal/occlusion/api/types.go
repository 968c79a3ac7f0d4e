// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string `json:"status"`
}

// checkRequest is the body of POST /api/v1/check.
type checkRequest struct {
	Object         string `json:"object"`
	VisibilityMask int    `json:"visibility_mask"`
}

// checkResponse is the body of POST /api/v1/check. A caller asking "is it
// visible" gets a plain boolean, with Unknown folded into "not visible"
// for this surface.
type checkResponse struct {
	Visible bool `json:"visible"`
}

// checkBatchRequest is the body of POST /api/v1/check/batch.
type checkBatchRequest struct {
	Objects        []string `json:"objects"`
	VisibilityMask int      `json:"visibility_mask"`
}

type checkBatchResultItem struct {
	Object  string `json:"object"`
	Visible bool   `json:"visible"`
}

type checkBatchResponse struct {
	Results []checkBatchResultItem `json:"results"`
}

// statsResponse is the body of GET /api/v1/stats.
type statsResponse struct {
	TotalEntries  uint64      `json:"total_entries"`
	PerLevelCount [256]uint64 `json:"per_level_count"`
	LoadSource    string      `json:"load_source"`
	LoadedAt      string      `json:"loaded_at"`
}

// opaCheckRequest is the body of POST /v1/data/occlusion/visible, wrapped in
// the OPA-convention input envelope.
type opaCheckRequest struct {
	Input struct {
		Object         string `json:"object"`
		VisibilityMask int    `json:"visibility_mask"`
	} `json:"input"`
}

type opaCheckResponse struct {
	Result bool `json:"result"`
}

type opaCheckBatchRequest struct {
	Input struct {
		Objects        []string `json:"objects"`
		VisibilityMask int      `json:"visibility_mask"`
	} `json:"input"`
}

// opaCheckBatchResponse is a flat boolean list, the natural reading of a
// batch decision result under OPA convention.
type opaCheckBatchResponse struct {
	Result []bool `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}
