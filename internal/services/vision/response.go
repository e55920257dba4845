package vision

import "menumatch/internal/matching"

type analyzeResponse struct {
	CaptionResult *struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"captionResult"`
	TagsResult *struct {
		Values []tagValue `json:"values"`
	} `json:"tagsResult"`
	ObjectsResult *struct {
		Values []struct {
			BoundingBox struct {
				X int `json:"x"`
				Y int `json:"y"`
				W int `json:"w"`
				H int `json:"h"`
			} `json:"boundingBox"`
			Tags []tagValue `json:"tags"`
		} `json:"values"`
	} `json:"objectsResult"`
	ReadResult *struct {
		Blocks []struct {
			Lines []struct {
				Text  string `json:"text"`
				Words []struct {
					Text       string  `json:"text"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

type tagValue struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

func (r analyzeResponse) signals() matching.SecondarySignals {
	out := matching.NewSecondarySignals()
	if r.CaptionResult != nil {
		out.Caption = r.CaptionResult.Text
		out.CaptionConfidence = r.CaptionResult.Confidence
	}
	if r.TagsResult != nil {
		for _, tag := range r.TagsResult.Values {
			out.Tags = append(out.Tags, matching.Tag{Name: tag.Name, Confidence: tag.Confidence})
		}
	}
	if r.ObjectsResult != nil {
		for _, obj := range r.ObjectsResult.Values {
			detected := matching.DetectedObject{
				Name: "unknown",
				BoundingBox: matching.BoundingBox{
					X:      obj.BoundingBox.X,
					Y:      obj.BoundingBox.Y,
					Width:  obj.BoundingBox.W,
					Height: obj.BoundingBox.H,
				},
			}
			if len(obj.Tags) > 0 {
				detected.Name = obj.Tags[0].Name
				detected.Confidence = obj.Tags[0].Confidence
			}
			out.Objects = append(out.Objects, detected)
		}
	}
	if r.ReadResult != nil {
		for _, block := range r.ReadResult.Blocks {
			for _, line := range block.Lines {
				var best float64
				for i, word := range line.Words {
					if i == 0 || word.Confidence > best {
						best = word.Confidence
					}
				}
				out.DetectedTexts = append(out.DetectedTexts, matching.DetectedText{Text: line.Text, Confidence: best})
			}
		}
	}
	return out
}
