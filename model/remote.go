// elCall: a fast decoder for neural-network-based variant callers.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elcall/blob/master/LICENSE.txt>.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
)

// A RemoteClassifier talks to a prediction server over HTTP. The
// server owns the network; this client only ships tensors and decodes
// probability vectors. Transient failures are retried with
// exponential backoff.
type RemoteClassifier struct {
	Endpoint   string
	MaxRetries uint64
	Client     *http.Client
}

// NewRemoteClassifier creates a classifier client for the given
// endpoint.
func NewRemoteClassifier(endpoint string, maxRetries uint64, timeout time.Duration) *RemoteClassifier {
	return &RemoteClassifier{
		Endpoint:   endpoint,
		MaxRetries: maxRetries,
		Client:     &http.Client{Timeout: timeout},
	}
}

func (rc *RemoteClassifier) post(path string, body []byte) (response []byte, err error) {
	operation := func() error {
		resp, err := rc.Client.Post(rc.Endpoint+path, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("prediction server returned %v for %v", resp.Status, path)
		}
		response, err = ioutil.ReadAll(resp.Body)
		return err
	}
	err = backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), rc.MaxRetries))
	return response, err
}

// RestoreParameters asks the prediction server to load a checkpoint.
func (rc *RemoteClassifier) RestoreParameters(path string) error {
	body, err := json.Marshal(map[string]string{"checkpoint": path})
	if err != nil {
		return err
	}
	_, err = rc.post("/restore", body)
	return err
}

func fillVector(dst []float64, c *gabs.Container, field string, index int) error {
	values, err := c.Path(field).Children()
	if err != nil {
		return fmt.Errorf("%v, while decoding %v for prediction %v", err, field, index)
	}
	if len(values) != len(dst) {
		return fmt.Errorf("prediction %v has %v %v values, expected %v", index, len(values), field, len(dst))
	}
	for i, v := range values {
		f, ok := v.Data().(float64)
		if !ok {
			return fmt.Errorf("non-numeric %v value in prediction %v", field, index)
		}
		dst[i] = f
	}
	return nil
}

// Predict ships a batch of flattened evidence tensors to the
// prediction server and decodes the four probability vectors per site.
// The returned slice is an owned snapshot.
func (rc *RemoteClassifier) Predict(tensors [][]float64) ([]Probabilities, error) {
	body, err := json.Marshal(map[string]interface{}{"instances": tensors})
	if err != nil {
		return nil, err
	}
	response, err := rc.post("/predict", body)
	if err != nil {
		return nil, err
	}
	parsed, err := gabs.ParseJSON(response)
	if err != nil {
		return nil, fmt.Errorf("%v, while decoding prediction server response", err)
	}
	children, err := parsed.Path("predictions").Children()
	if err != nil {
		return nil, fmt.Errorf("%v, while decoding predictions", err)
	}
	probs := make([]Probabilities, len(children))
	for i, c := range children {
		p := &probs[i]
		if err := fillVector(p.GT21[:], c, "gt21", i); err != nil {
			return nil, err
		}
		if err := fillVector(p.Genotype[:], c, "genotype", i); err != nil {
			return nil, err
		}
		if err := fillVector(p.Length1[:], c, "indel_length_1", i); err != nil {
			return nil, err
		}
		if err := fillVector(p.Length2[:], c, "indel_length_2", i); err != nil {
			return nil, err
		}
	}
	return probs, nil
}
