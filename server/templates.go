package server

// formTemplate はフォーム画面。output には結果文字列またはエラー文字列が入る
const formTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
</head>
<body>
<h1>{{ title }}</h1>
<form method="post" action="/run" enctype="multipart/form-data">
  <p><label>Upload a CSV file <input type="file" name="file" accept=".csv"></label></p>
  <p><label>Target column <input type="text" name="target" value="{{ target | escape }}"></label></p>
  <p><label>Test size
    <input type="range" name="test_size" min="{{ min_test_size }}" max="{{ max_test_size }}" step="0.05" value="{{ test_size }}">
  </label></p>
  <fieldset>
    <legend>Model type</legend>
    {% for kind in kinds %}<label><input type="radio" name="model_type" value="{{ loop.index0 }}"{% if kind == selected_kind %} checked{% endif %}> {{ kind }}</label>
    {% endfor %}
  </fieldset>
  <fieldset>
    <legend>Missing value strategy</legend>
    {% for strategy in strategies %}<label><input type="radio" name="strategy" value="{{ loop.index0 }}"{% if strategy == selected_strategy %} checked{% endif %}> {{ strategy }}</label>
    {% endfor %}
  </fieldset>
  <p><label>Condition (optional) <input type="text" name="condition" value="{{ condition | escape }}" placeholder="age > 30 and city == 'Tokyo'"></label></p>
  <p><label>Hyperparameters (optional)
    <textarea name="params" rows="4" placeholder='{"n_estimators": [50, 100], "max_depth": [null, 5]}'>{{ params | escape }}</textarea>
  </label></p>
  <p><button type="submit">Run</button></p>
</form>
<h2>Output</h2>
<pre id="output">{{ output | escape }}</pre>
</body>
</html>
`
